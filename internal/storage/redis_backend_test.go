package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	mr := miniredis.RunT(t)
	backend := NewRedisBackend(mr.Addr(), "", 0, "test:")
	require.NoError(t, backend.Initialize(context.Background()))
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestRedisBackendRoundTrip(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	_, err := backend.GetDocument(ctx, "symbols")
	assert.True(t, IsNotFound(err))

	require.NoError(t, backend.SetDocument(ctx, "symbols", []byte(`["X","Y"]`)))

	got, err := backend.GetDocument(ctx, "symbols")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["X","Y"]`), got)

	require.NoError(t, backend.DeleteDocument(ctx, "symbols"))
	_, err = backend.GetDocument(ctx, "symbols")
	assert.True(t, IsNotFound(err))
}

func TestRedisBackendKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	backend := NewRedisBackend(mr.Addr(), "", 0, "tc:")
	ctx := context.Background()
	require.NoError(t, backend.Initialize(ctx))
	defer backend.Close()

	require.NoError(t, backend.SetDocument(ctx, "credentials", []byte(`{}`)))
	assert.True(t, mr.Exists("tc:doc:credentials"))
}

func TestRedisBackendHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	backend := NewRedisBackend(mr.Addr(), "", 0, "")
	ctx := context.Background()
	require.NoError(t, backend.Initialize(ctx))
	defer backend.Close()

	assert.NoError(t, backend.Health(ctx))

	mr.Close()
	assert.Error(t, backend.Health(ctx))
}
