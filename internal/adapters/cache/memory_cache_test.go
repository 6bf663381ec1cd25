package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(now time.Time) *MemoryCache {
	c := NewMemoryCache(nil, 0)
	c.now = func() time.Time { return now }
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newTestCache(now)
	ctx := context.Background()

	entry := &core.CacheEntry{
		Key:       "abc",
		Verdict:   core.RemoteVerdict{IsSpam: true, Score: 0.7, ModelUsed: "m"},
		LastSeen:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	got.Verdict.Score = 0
	again, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 0.7, again.Verdict.Score)
}

func TestMemoryCache_Errors(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, &core.CacheEntry{Key: "old", ExpiresAt: now.Add(-time.Second)}))
	_, err = c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrExpired)

	assert.Error(t, c.Set(ctx, &core.CacheEntry{}))
	assert.Error(t, c.Set(ctx, nil))
}

func TestMemoryCache_DeleteAndCleanup(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &core.CacheEntry{Key: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, c.Set(ctx, &core.CacheEntry{Key: "dead", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, c.Set(ctx, &core.CacheEntry{Key: "gone", ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, c.Delete(ctx, "gone"))
	require.NoError(t, c.Cleanup(ctx))

	assert.Equal(t, 1, c.Len())
	_, err := c.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestMemoryCache_StopIsIdempotent(t *testing.T) {
	c := NewMemoryCache(nil, time.Millisecond)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}
