package sqlkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vet-portal/internal/repository"
)

func openSQLite(t *testing.T) *KV {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vet.db")
	kv, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestSQLiteKVUpsert(t *testing.T) {
	ctx := context.Background()
	kv := openSQLite(t)

	_, err := kv.Get(ctx, "vetclinic:appointments")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "vetclinic:appointments", []byte(`[]`)))
	require.NoError(t, kv.Set(ctx, "vetclinic:appointments", []byte(`[{"id":"a1"}]`)))

	got, err := kv.Get(ctx, "vetclinic:appointments")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a1"}]`, string(got))

	require.NoError(t, kv.Delete(ctx, "vetclinic:appointments"))
	_, err = kv.Get(ctx, "vetclinic:appointments")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestSQLiteKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vet.db")

	kv, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "vetclinic:pref:theme", []byte(`"dark"`)))
	require.NoError(t, kv.Close())

	reopened, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "vetclinic:pref:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(got))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}
