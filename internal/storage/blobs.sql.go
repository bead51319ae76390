package storage

import (
	"context"
	"time"
)

const getBlob = `-- name: GetBlob :one
SELECT value FROM blobs
WHERE key = ?
`

func (q *Queries) GetBlob(ctx context.Context, key string) ([]byte, error) {
	row := q.db.QueryRowContext(ctx, getBlob, key)
	var value []byte
	err := row.Scan(&value)
	return value, err
}

const upsertBlob = `-- name: UpsertBlob :exec
INSERT INTO blobs (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at
`

type UpsertBlobParams struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

func (q *Queries) UpsertBlob(ctx context.Context, arg UpsertBlobParams) error {
	_, err := q.db.ExecContext(ctx, upsertBlob, arg.Key, arg.Value, arg.UpdatedAt)
	return err
}

const listBlobKeys = `-- name: ListBlobKeys :many
SELECT key FROM blobs
ORDER BY key
`

func (q *Queries) ListBlobKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listBlobKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
