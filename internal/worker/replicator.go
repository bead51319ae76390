package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"laplog/internal/amqp"
	"laplog/internal/blob"
	"laplog/internal/core"
	"laplog/internal/metrics"
	"laplog/internal/store"
)

// Replicator copies the record blob from the primary adapter to a replica.
// A primary blob that does not decode is never copied, so a corrupt write
// cannot spread.
type Replicator struct {
	primary blob.Reader
	replica blob.Store
	key     string
}

func NewReplicator(primary blob.Reader, replica blob.Store, key string) *Replicator {
	return &Replicator{primary: primary, replica: replica, key: key}
}

// Sync copies the current primary blob. It returns whether the replica changed.
func (r *Replicator) Sync(ctx context.Context) (bool, error) {
	data, ok, err := r.primary.Get(ctx, r.key)
	if err != nil {
		metrics.RecordReplication(metrics.OutcomeIOError)
		return false, fmt.Errorf("%w: read primary %q: %w", core.ErrIOFailure, r.key, err)
	}
	if !ok {
		metrics.RecordReplication(metrics.OutcomeSkipped)
		slog.DebugContext(ctx, "Primary blob absent, nothing to replicate", "key", r.key)
		return false, nil
	}

	records, err := store.Decode(data)
	if err != nil {
		metrics.RecordReplication(metrics.OutcomeError)
		slog.ErrorContext(ctx, "Refusing to replicate corrupt blob", "key", r.key, "error", err)
		return false, fmt.Errorf("validate primary %q: %w", r.key, err)
	}

	current, present, err := r.replica.Get(ctx, r.key)
	if err != nil {
		metrics.RecordReplication(metrics.OutcomeIOError)
		return false, fmt.Errorf("%w: read replica %q: %w", core.ErrIOFailure, r.key, err)
	}
	if present && bytes.Equal(current, data) {
		metrics.RecordReplication(metrics.OutcomeSkipped)
		return false, nil
	}

	if err := r.replica.Put(ctx, r.key, data); err != nil {
		metrics.RecordReplication(metrics.OutcomeIOError)
		return false, fmt.Errorf("%w: write replica %q: %w", core.ErrIOFailure, r.key, err)
	}
	metrics.RecordReplication(metrics.OutcomeOK)
	slog.InfoContext(ctx, "Replica updated", "key", r.key, "records", len(records), "bytes", len(data))
	return true, nil
}

// HandleChange reacts to a record change notification. Messages for other
// blobs are acknowledged and ignored. A corrupt primary is also acknowledged:
// redelivery cannot repair it, and the periodic sync picks up the next valid
// write.
func (r *Replicator) HandleChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	if msg.BlobKey != r.key {
		slog.DebugContext(ctx, "Ignoring change for another blob", "blob_key", msg.BlobKey, "key", r.key)
		return nil
	}
	slog.InfoContext(ctx, "Processing record change",
		"id", msg.ID,
		"op", msg.Op,
		"owner", msg.Owner,
		"date", msg.Date)
	_, err := r.Sync(ctx)
	if errors.Is(err, core.ErrCorruptState) {
		slog.WarnContext(ctx, "Dropping change for corrupt primary", "id", msg.ID, "error", err)
		return nil
	}
	return err
}

// Run syncs every interval until ctx ends. Failures are logged and retried on
// the next tick, because notifications may be lost while the worker is down.
func (r *Replicator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
