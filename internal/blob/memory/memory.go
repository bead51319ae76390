package memory

import (
	"context"
	"sync"

	"laplog/internal/blob"
)

var _ blob.Store = (*Store)(nil)

// Store keeps blobs in process memory. Contents are lost on exit.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte
	puts  int
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// NewWith seeds the store with one blob.
func NewWith(key string, data []byte) *Store {
	s := New()
	s.blobs[key] = append([]byte(nil), data...)
	return s
}

// Get returns a copy of the stored blob.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores a copy of data.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	s.puts++
	return nil
}

// Puts reports how many writes the store has received.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
