package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Get when the key was never written.
var ErrKeyNotFound = errors.New("key not found")

// KV is the durable key-value layer the entity store mirrors its collections to.
// Values are opaque bytes; the store writes JSON.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
