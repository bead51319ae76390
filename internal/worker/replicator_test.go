package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"laplog/internal/amqp"
	"laplog/internal/blob/memory"
	"laplog/internal/core"
	"laplog/internal/store"
)

const key = store.DefaultKey

const validBlob = `[{"owner":"Alice","date":"2025-03-05","activity":"Walk","distance":240}]`

type failingReader struct{}

func (failingReader) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("unreachable")
}

func TestSyncCopiesValidBlob(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewWith(key, []byte(validBlob))
	replica := memory.New()
	r := NewReplicator(primary, replica, key)

	changed, err := r.Sync(ctx)
	if err != nil || !changed {
		t.Fatalf("expected copy, changed=%v err=%v", changed, err)
	}
	data, ok, _ := replica.Get(ctx, key)
	if !ok || string(data) != validBlob {
		t.Fatalf("replica holds %q", data)
	}

	changed, err = r.Sync(ctx)
	if err != nil || changed {
		t.Fatalf("unchanged primary should not rewrite, changed=%v err=%v", changed, err)
	}
	if replica.Puts() != 1 {
		t.Fatalf("expected one write, got %d", replica.Puts())
	}
}

func TestSyncRefusesCorruptPrimary(t *testing.T) {
	primary := memory.NewWith(key, []byte(`{"broken":true}`))
	replica := memory.NewWith(key, []byte(validBlob))
	r := NewReplicator(primary, replica, key)

	if _, err := r.Sync(context.Background()); !errors.Is(err, core.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
	data, _, _ := replica.Get(context.Background(), key)
	if string(data) != validBlob {
		t.Fatalf("replica must be untouched, got %q", data)
	}
}

func TestSyncAbsentPrimary(t *testing.T) {
	replica := memory.New()
	r := NewReplicator(memory.New(), replica, key)
	changed, err := r.Sync(context.Background())
	if err != nil || changed || replica.Puts() != 0 {
		t.Fatalf("expected no-op, changed=%v err=%v puts=%d", changed, err, replica.Puts())
	}
}

func TestSyncPrimaryFailure(t *testing.T) {
	r := NewReplicator(failingReader{}, memory.New(), key)
	if _, err := r.Sync(context.Background()); !errors.Is(err, core.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
}

func TestHandleChange(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewWith(key, []byte(validBlob))
	replica := memory.New()
	r := NewReplicator(primary, replica, key)

	other := amqp.NewRecordChangeMessage(amqp.OpSave, "Alice", core.NewDate(2025, 3, 5), core.Walk, "elsewhere")
	if err := r.HandleChange(ctx, other); err != nil || replica.Puts() != 0 {
		t.Fatalf("other blob keys must be ignored, err=%v puts=%d", err, replica.Puts())
	}

	msg := amqp.NewRecordChangeMessage(amqp.OpSave, "Alice", core.NewDate(2025, 3, 5), core.Walk, key)
	if err := r.HandleChange(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if replica.Puts() != 1 {
		t.Fatalf("expected replica write, got %d", replica.Puts())
	}
}

func TestHandleChangeAcksCorruptPrimary(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewWith(key, []byte(`{"broken":true}`))
	replica := memory.NewWith(key, []byte(validBlob))
	r := NewReplicator(primary, replica, key)

	msg := amqp.NewRecordChangeMessage(amqp.OpDeleteKey, "Alice", core.NewDate(2025, 3, 5), core.Walk, key)
	if err := r.HandleChange(ctx, msg); err != nil {
		t.Fatalf("corrupt primary must not requeue the message, got %v", err)
	}
	data, _, _ := replica.Get(ctx, key)
	if string(data) != validBlob || replica.Puts() != 0 {
		t.Fatalf("replica must be untouched, got %q after %d writes", data, replica.Puts())
	}

	// Read failures may be transient and still go back to the broker.
	failing := NewReplicator(failingReader{}, memory.New(), key)
	if err := failing.HandleChange(ctx, msg); !errors.Is(err, core.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	replica := memory.New()
	r := NewReplicator(memory.NewWith(key, []byte(validBlob)), replica, key)
	if err := r.Run(ctx, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if replica.Puts() != 1 {
		t.Fatalf("expected exactly one write over several ticks, got %d", replica.Puts())
	}
}
