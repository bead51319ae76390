// Package blob defines the key-value blob port the record store persists through.
package blob

import "context"

// Ports for persistence adapters.
type (
	Reader interface {
		// Get returns the blob stored under key. ok is false when nothing is stored.
		Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	}

	Writer interface {
		// Put replaces the blob stored under key.
		Put(ctx context.Context, key string, data []byte) error
	}

	Store interface {
		Reader
		Writer
	}
)
