package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jwalitptl/vet-portal/internal/repository"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS vet_state (
	bucket TEXT PRIMARY KEY,
	payload TEXT NOT NULL
)`

// KV stores every key as one row of the vet_state table.
type KV struct {
	db *sqlx.DB
}

var _ repository.KV = (*KV)(nil)

// Open connects with driver and dsn and creates the state table if needed.
func Open(ctx context.Context, driver, dsn string) (*KV, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; sqlite serializes anyway.
		db.SetMaxOpenConns(1)
	}
	return New(ctx, db)
}

// New wraps an existing connection.
func New(ctx context.Context, db *sqlx.DB) (*KV, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &KV{db: db}, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := k.db.GetContext(ctx, &payload, k.db.Rebind(`SELECT payload FROM vet_state WHERE bucket = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	query := k.db.Rebind(`INSERT INTO vet_state (bucket, payload) VALUES (?, ?)
		ON CONFLICT (bucket) DO UPDATE SET payload = excluded.payload`)
	if _, err := k.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, k.db.Rebind(`DELETE FROM vet_state WHERE bucket = ?`), key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.db.PingContext(ctx)
}

func (k *KV) Close() error {
	return k.db.Close()
}
