package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"laplog/internal/core"
)

// Op names the store mutation a message reports.
type Op string

const (
	OpSave       Op = "save"
	OpDeleteKey  Op = "delete_key"
	OpDeleteDate Op = "delete_date"
)

func (o Op) Valid() bool {
	switch o {
	case OpSave, OpDeleteKey, OpDeleteDate:
		return true
	}
	return false
}

// RecordChangeMessage announces that the record blob changed. It carries the
// key of the mutation, not the records; consumers re-read the blob.
type RecordChangeMessage struct {
	ID        uuid.UUID `json:"id"`
	Op        Op        `json:"op"`
	Owner     string    `json:"owner"`
	Date      string    `json:"date"`
	Activity  string    `json:"activity,omitempty"`
	BlobKey   string    `json:"blob_key"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordChangeMessage stamps a change with a fresh ID and the current time.
// Pass an empty activity for date-wide deletes.
func NewRecordChangeMessage(op Op, owner string, date core.Date, activity core.Activity, blobKey string) *RecordChangeMessage {
	return &RecordChangeMessage{
		ID:        uuid.New(),
		Op:        op,
		Owner:     core.NormalizeOwner(owner),
		Date:      date.String(),
		Activity:  string(activity),
		BlobKey:   blobKey,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangeMessageFromJSON decodes and checks a message body.
func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Op.Valid() {
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	if msg.BlobKey == "" {
		return nil, fmt.Errorf("missing blob_key")
	}
	return &msg, nil
}
