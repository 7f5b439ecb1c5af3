package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobflow-backend/internal/nas"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, c := newMiniRedis(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, &nas.Session{SID: "abc", CreatedAt: created}))
	assert.True(t, mr.Exists(NASSessionKey))
	assert.Equal(t, time.Hour, mr.TTL(NASSessionKey))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.SID)
	assert.True(t, created.Equal(got.CreatedAt))

	require.NoError(t, store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreExpires(t *testing.T) {
	mr, c := newMiniRedis(t)
	store := NewSessionStore(c, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &nas.Session{SID: "abc"}))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreWithoutRedis(t *testing.T) {
	store := NewSessionStore(nil, 0)
	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Set(context.Background(), &nas.Session{SID: "x"}), ErrUnavailable)
}

func TestListingCache(t *testing.T) {
	mr, c := newMiniRedis(t)
	SetClient(c)
	t.Cleanup(func() { SetClient(nil) })
	ctx := context.Background()

	SetCached(ctx, ListingKey("/P/RAW"), []byte(`["a.png"]`), ListingTTL)
	SetCached(ctx, ListingKey("/P/DONE"), []byte(`[]`), ListingTTL)

	data, ok := GetCached(ctx, ListingKey("/P/RAW"))
	require.True(t, ok)
	assert.Equal(t, `["a.png"]`, string(data))

	InvalidateListings(ctx, "/P/RAW")
	_, ok = GetCached(ctx, ListingKey("/P/RAW"))
	assert.False(t, ok)
	assert.True(t, mr.Exists(ListingKey("/P/DONE")))

	InvalidateAllListings(ctx)
	assert.False(t, mr.Exists(ListingKey("/P/DONE")))
	assert.True(t, IsHealthy())
}

func TestHelpersWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetCached(ctx, "k", []byte("v"), time.Minute)
	_, ok := GetCached(ctx, "k")
	assert.False(t, ok)
	InvalidateListings(ctx, "/P")
	assert.False(t, IsHealthy())
}
