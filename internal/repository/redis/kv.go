package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/vet-portal/internal/repository"
)

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// KV stores each key as a plain Redis string. Calls go through a circuit breaker so
// a Redis outage fails fast.
type KV struct {
	client *goredis.Client
	cb     *gobreaker.CircuitBreaker
}

var _ repository.KV = (*KV)(nil)

// NewKV parses the URL, applies pool settings and pings the server.
func NewKV(ctx context.Context, config Config) (*KV, error) {
	opts, err := goredis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		opts.MinRetryBackoff = config.RetryBackoff
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewKVFromClient(client, config), nil
}

// NewKVFromClient wraps an already connected client.
func NewKVFromClient(client *goredis.Client, config Config) *KV {
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := config.BreakerTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-kv",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
	return &KV{client: client, cb: cb}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := k.cb.Execute(func() (interface{}, error) {
		value, err := k.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			// A missing key is not a failure of the backend.
			return nil, nil
		}
		return value, err
	})
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if res == nil {
		return nil, repository.ErrKeyNotFound
	}
	return res.([]byte), nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.cb.Execute(func() (interface{}, error) {
		return nil, k.client.Set(ctx, key, value, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	_, err := k.cb.Execute(func() (interface{}, error) {
		return nil, k.client.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}

func (k *KV) Close() error {
	return k.client.Close()
}

// Client exposes the connection so the change-event publisher can share it.
func (k *KV) Client() *goredis.Client {
	return k.client
}
