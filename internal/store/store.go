// Package store owns the authoritative set of exercise records.
//
// A Store enforces one record per (owner, date, activity) key and writes the
// full record set through a blob.Writer after every mutation. All methods are
// safe for concurrent use; each read-modify-write runs under one mutex and the
// write to the adapter happens inside it, so blobs land in mutation order.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"laplog/internal/blob"
	"laplog/internal/core"
)

// DefaultKey is the blob key records are persisted under.
const DefaultKey = "exerciseRecords"

type Store struct {
	mu      sync.Mutex
	records map[core.Key]core.Record

	blobs  blob.Writer
	key    string
	strict bool
	logger *slog.Logger
}

type Option func(*Store)

// WithPersistence binds the store to an adapter. Without it mutations stay in memory.
func WithPersistence(w blob.Writer, key string) Option {
	return func(s *Store) {
		s.blobs = w
		s.key = key
	}
}

// WithStrictPersistence undoes a mutation in memory when the write fails.
func WithStrictPersistence() Option {
	return func(s *Store) {
		s.strict = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[core.Key]core.Record),
		key:     DefaultKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load builds a store from a persisted blob. A nil or empty blob yields an
// empty store; a malformed one fails with core.ErrCorruptState.
func Load(data []byte, opts ...Option) (*Store, error) {
	records, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s := New(opts...)
	for _, r := range records {
		s.records[r.Key()] = r
	}
	return s, nil
}

// Open reads the blob once from the adapter and binds the store to it.
func Open(ctx context.Context, blobs blob.Store, key string, opts ...Option) (*Store, error) {
	data, ok, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %q: %w", core.ErrIOFailure, key, err)
	}
	if !ok {
		data = nil
	}
	s, err := Load(data, append(opts, WithPersistence(blobs, key))...)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	s.logger.InfoContext(ctx, "Record store loaded", "key", key, "present", ok, "records", len(s.records))
	return s, nil
}

// Save upserts the record for (owner, date, activity). The stored distance is
// always the most recently saved value; nothing accumulates.
func (s *Store) Save(ctx context.Context, owner string, date core.Date, activity core.Activity, distance int64) (core.Record, error) {
	r := core.Record{
		Owner:    core.NormalizeOwner(owner),
		Date:     core.DateOf(date.Time),
		Activity: activity,
		Distance: distance,
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := r.Key()
	prev, had := s.records[k]
	s.records[k] = r

	if err := s.persistLocked(ctx); err != nil {
		if s.strict {
			if had {
				s.records[k] = prev
			} else {
				delete(s.records, k)
			}
		}
		return r, err
	}
	return r, nil
}

// DeleteByKey removes the record at the key. An absent key is a no-op and
// triggers no write.
func (s *Store) DeleteByKey(ctx context.Context, owner string, date core.Date, activity core.Activity) (bool, error) {
	k := core.NewKey(owner, date, activity)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[k]
	if !ok {
		return false, nil
	}
	delete(s.records, k)

	if err := s.persistLocked(ctx); err != nil {
		if s.strict {
			s.records[k] = prev
		}
		return true, err
	}
	return true, nil
}

// DeleteByDate removes every activity the owner logged on date and returns how
// many records went away.
func (s *Store) DeleteByDate(ctx context.Context, owner string, date core.Date) (int, error) {
	owner = core.NormalizeOwner(owner)
	day := core.DateOf(date.Time)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []core.Record
	for k, r := range s.records {
		if k.Owner == owner && k.Date == day {
			removed = append(removed, r)
			delete(s.records, k)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	if err := s.persistLocked(ctx); err != nil {
		if s.strict {
			for _, r := range removed {
				s.records[r.Key()] = r
			}
		}
		return len(removed), err
	}
	return len(removed), nil
}

// RecordsFor returns a copy of the owner's records sorted by date.
func (s *Store) RecordsFor(owner string) []core.Record {
	owner = core.NormalizeOwner(owner)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Record
	for k, r := range s.records {
		if k.Owner == owner {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

// Records returns a copy of every record.
func (s *Store) Records() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Owners returns every owner with at least one record, sorted.
func (s *Store) Owners() []string {
	records := s.Records()
	var out []string
	for _, r := range records {
		if len(out) == 0 || out[len(out)-1] != r.Owner {
			out = append(out, r.Owner)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Marshal serializes the current record set in the persisted format.
func (s *Store) Marshal() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Encode(s.snapshotLocked())
}

// Key returns the blob key the store persists under.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) snapshotLocked() []core.Record {
	out := make([]core.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.blobs == nil {
		return nil
	}
	data, err := Encode(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.logger.ErrorContext(ctx, "Persisting records failed",
			"key", s.key,
			"records", len(s.records),
			"strict", s.strict,
			"error", err)
		return fmt.Errorf("%w: put %q: %w", core.ErrIOFailure, s.key, err)
	}
	s.logger.DebugContext(ctx, "Records persisted", "key", s.key, "records", len(s.records), "bytes", len(data))
	return nil
}
