package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-monitor/internal/weather"
)

func newTestCache(t *testing.T) (*CachedStore, *MemoryStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	inner := NewMemoryStore()
	s := NewCachedStore(inner, client, time.Minute, nil)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, inner, mr, client
}

func TestCachedStoreContract(t *testing.T) {
	s, _, _, _ := newTestCache(t)
	testStoreContract(t, s)
}

func TestCachedStoreServesAndInvalidates(t *testing.T) {
	s, inner, mr, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC()

	firstID, err := s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now.Add(-time.Minute)})
	require.NoError(t, err)

	got, err := s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)
	assert.True(t, mr.Exists(latestKey("Austin,TX")))

	// Written behind the cache's back: the cached copy is served.
	_, err = inner.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now.Add(-30 * time.Second)})
	require.NoError(t, err)
	got, err = s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)

	secondID, err := s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now})
	require.NoError(t, err)
	assert.False(t, mr.Exists(latestKey("Austin,TX")))

	got, err = s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)
	assert.Equal(t, secondID, got.ID)
	assert.True(t, mr.Exists(latestKey("Austin,TX")))
}

func TestCachedStoreDeleteInvalidatesOnlyWhenRowsRemoved(t *testing.T) {
	s, _, mr, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now.Add(-40 * 24 * time.Hour)})
	require.NoError(t, err)
	_, err = s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now})
	require.NoError(t, err)
	_, err = s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)

	n, err := s.DeleteOlderThan(ctx, "Austin,TX", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.False(t, mr.Exists(latestKey("Austin,TX")))

	_, err = s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)
	n, err = s.DeleteOlderThan(ctx, "Austin,TX", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, mr.Exists(latestKey("Austin,TX")))
}

func TestCachedStoreDropsFillThatRacedAWrite(t *testing.T) {
	s, _, mr, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := weather.WeatherRecord{ID: "old", Location: "Austin,TX", Timestamp: now.Add(-time.Minute)}

	// A reader that loaded at generation 0 loses to a write that bumped it.
	_, err := s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: now})
	require.NoError(t, err)
	s.fill(ctx, "Austin,TX", 0, stale)
	assert.False(t, mr.Exists(latestKey("Austin,TX")))

	gen, err := mr.Get(generationKey("Austin,TX"))
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	s.fill(ctx, "Austin,TX", 1, stale)
	assert.True(t, mr.Exists(latestKey("Austin,TX")))
}

func TestCachedStoreFallsBackWhenRedisIsDown(t *testing.T) {
	s, _, mr, _ := newTestCache(t)
	ctx := context.Background()

	id, err := s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	mr.Close()

	got, err := s.GetLatest(ctx, "Austin,TX")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = s.Create(ctx, weather.WeatherRecord{Location: "Austin,TX", Timestamp: time.Now().UTC()})
	require.NoError(t, err, "writes must not depend on the cache")

	err = s.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrStorage)
}
