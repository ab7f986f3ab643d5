package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, limit int) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionStore(rdb, time.Hour, limit), mr
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, 20)

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	s := model.NewSession("u1", time.Now().UTC().Truncate(time.Second))
	s.Preferences.Location = "Lake Tahoe"
	s.Preferences.GuestCount = 4
	maxPrice := 50.0
	s.Preferences.PriceRange.Max = &maxPrice
	require.NoError(t, store.Put(ctx, s))

	assert.True(t, mr.Exists("session:u1:state"))
	assert.Equal(t, time.Hour, mr.TTL("session:u1:state"))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Lake Tahoe", got.Preferences.Location)
	assert.Equal(t, 4, got.Preferences.GuestCount)
	require.NotNil(t, got.Preferences.PriceRange.Max)
	assert.Equal(t, 50.0, *got.Preferences.PriceRange.Max)
	assert.True(t, s.LastActivityAt.Equal(got.LastActivityAt))
}

func TestRedisSessionStore_HistoryCapped(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, 20)

	for i := 0; i < 12; i++ {
		require.NoError(t, store.AppendHistory(ctx, "u1",
			model.HistoryEntry{Role: model.RoleUser, Message: fmt.Sprintf("q-%d", i)},
			model.HistoryEntry{Role: model.RoleBot, Message: fmt.Sprintf("a-%d", i)},
		))
	}

	all, err := store.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 20)
	assert.Equal(t, "q-2", all[0].Message)
	assert.Equal(t, "a-11", all[19].Message)

	last, err := store.History(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"q-11", "a-11"}, messages(last))
}

func TestRedisSessionStore_SweepAndDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, 20)
	now := time.Now()

	require.NoError(t, store.Put(ctx, model.NewSession("old", now.Add(-2*time.Hour))))
	require.NoError(t, store.Put(ctx, model.NewSession("new", now)))
	require.NoError(t, store.AppendHistory(ctx, "old", model.HistoryEntry{Role: model.RoleUser, Message: "hi"}))

	removed, err := store.Sweep(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists("session:old:state"))
	assert.False(t, mr.Exists("session:old:history"))
	assert.True(t, mr.Exists("session:new:state"))

	require.NoError(t, store.Delete(ctx, "new"))
	_, err = store.Get(ctx, "new")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}
