package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"laplog/internal/core"
)

// wireRecord mirrors the persisted object. Pointer and raw fields let the
// decoder tell a missing field from a zero value. Name and Meters are the
// field names of older blobs and only count when owner and distance are absent.
type wireRecord struct {
	Owner    *string         `json:"owner"`
	Date     *string         `json:"date"`
	Activity *string         `json:"activity"`
	Distance json.RawMessage `json:"distance"`

	Name   *string         `json:"name"`
	Meters json.RawMessage `json:"meters"`
}

// Decode parses a persisted blob. Empty input is an absent blob and yields no
// records. Anything else must be a JSON array of complete records; one bad
// entry fails the whole decode with core.ErrCorruptState.
func Decode(data []byte) ([]core.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: blob is not a JSON array", core.ErrCorruptState)
	}

	var wire []wireRecord
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptState, err)
	}

	out := make([]core.Record, 0, len(wire))
	for i, w := range wire {
		r, err := w.record()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", core.ErrCorruptState, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (w wireRecord) record() (core.Record, error) {
	if w.Owner == nil {
		w.Owner = w.Name
	}
	if w.Distance == nil {
		w.Distance = w.Meters
	}
	switch {
	case w.Owner == nil:
		return core.Record{}, fmt.Errorf("missing field %q", "owner")
	case w.Date == nil:
		return core.Record{}, fmt.Errorf("missing field %q", "date")
	case w.Activity == nil:
		return core.Record{}, fmt.Errorf("missing field %q", "activity")
	case w.Distance == nil:
		return core.Record{}, fmt.Errorf("missing field %q", "distance")
	}

	owner, err := core.ValidateOwner(*w.Owner)
	if err != nil {
		return core.Record{}, err
	}
	date, err := core.ParseDate(*w.Date)
	if err != nil {
		return core.Record{}, err
	}
	activity, err := core.ParseActivity(*w.Activity)
	if err != nil {
		return core.Record{}, err
	}
	distance, err := strconv.ParseInt(string(w.Distance), 10, 64)
	if err != nil {
		return core.Record{}, fmt.Errorf("distance %s is not an integer", string(w.Distance))
	}
	if distance < 0 {
		return core.Record{}, fmt.Errorf("distance %d is negative", distance)
	}

	return core.Record{Owner: owner, Date: date, Activity: activity, Distance: distance}, nil
}

// Encode serializes records as a JSON array sorted by owner, date and activity,
// so equal record sets always produce equal blobs.
func Encode(records []core.Record) ([]byte, error) {
	sorted := make([]core.Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)
	return json.Marshal(sorted)
}

func sortRecords(records []core.Record) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return activityRank(a.Activity) < activityRank(b.Activity)
	})
}

func activityRank(a core.Activity) int {
	for i, v := range core.Activities {
		if v == a {
			return i
		}
	}
	return len(core.Activities)
}
