package memory

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/vet-portal/internal/repository"
)

// KV keeps values in process memory. Nothing survives a restart; it backs
// development runs and tests.
type KV struct {
	cache *cache.Cache
}

var _ repository.KV = (*KV)(nil)

func NewKV() *KV {
	return &KV{cache: cache.New(cache.NoExpiration, 0)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := k.cache.Get(key)
	if !ok {
		return nil, repository.ErrKeyNotFound
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

func (k *KV) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	k.cache.Set(key, stored, cache.NoExpiration)
	return nil
}

func (k *KV) Delete(_ context.Context, key string) error {
	k.cache.Delete(key)
	return nil
}

func (k *KV) Ping(context.Context) error { return nil }

func (k *KV) Close() error {
	k.cache.Flush()
	return nil
}

// Keys lists every stored key. Used by tests to inspect the layout.
func (k *KV) Keys() []string {
	items := k.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	return keys
}
