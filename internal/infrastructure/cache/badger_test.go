package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Badger {
	t.Helper()

	b, err := OpenBadger("", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadgerSetGet(t *testing.T) {
	t.Parallel()

	b := openMemory(t)
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "analysis:entry:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "analysis:entry:k", []byte(`{"sentiment":0.5}`), time.Hour))
	value, ok, err := b.Get(ctx, "analysis:entry:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"sentiment":0.5}`, string(value))
}

func TestBadgerExpiry(t *testing.T) {
	t.Parallel()

	b := openMemory(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "short", []byte("v"), time.Second))
	require.Eventually(t, func() bool {
		_, ok, err := b.Get(ctx, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestBadgerCancelledContext(t *testing.T) {
	t.Parallel()

	b := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v"), 0), context.Canceled)
}

func TestBadgerGCInMemory(t *testing.T) {
	t.Parallel()

	assert.NoError(t, openMemory(t).RunGC())
}

func TestNoopAlwaysMisses(t *testing.T) {
	t.Parallel()

	var c Noop
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Hour))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}
