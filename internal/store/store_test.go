package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotKey = "tomorrow-timeline:3777493,-12241942:2024-07-12T17:00:00Z"

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, ok, err := s.Get(ctx, snapshotKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, snapshotKey, `{"utc":"2024-07-12T17:00:00Z"}`, 30*time.Minute))

	v, ok, err := s.Get(ctx, snapshotKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"utc":"2024-07-12T17:00:00Z"}`, v)

	now = now.Add(29 * time.Minute)
	_, ok, _ = s.Get(ctx, snapshotKey)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = s.Get(ctx, snapshotKey)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreOverwriteAndDelete(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "first", time.Minute))
	require.NoError(t, s.Set(ctx, "k", "second", time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, s.Set(ctx, "k", "gone", 0))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStoreSweepsExpiredWithoutLimit(t *testing.T) {
	now := time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		key := fmt.Sprintf("tomorrow-timeline:1,2:%s", now.Add(time.Duration(i)*time.Hour).Format(time.RFC3339))
		require.NoError(t, s.Set(ctx, key, "{}", 30*time.Minute))
	}
	assert.Len(t, s.data, 120)

	now = now.Add(31 * time.Minute)
	require.NoError(t, s.Set(ctx, snapshotKey, "{}", 30*time.Minute))

	assert.Len(t, s.data, 1)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreMaxEntries(t *testing.T) {
	now := time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, s.Set(ctx, "b", "2", time.Hour))
	require.NoError(t, s.Set(ctx, "c", "3", 2*time.Hour))

	assert.Equal(t, 2, s.Len())
	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "c")
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()

	s, err := NewRedisStore(RedisOptions{Addr: mr.Addr()}, logger)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, snapshotKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, snapshotKey, "payload", 30*time.Minute))
	assert.Equal(t, 30*time.Minute, mr.TTL(snapshotKey))

	v, ok, err := s.Get(ctx, snapshotKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", v)

	mr.FastForward(31 * time.Minute)
	_, ok, err = s.Get(ctx, snapshotKey)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Ping(ctx))
}

func TestRedisStoreErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()

	s, err := NewRedisStore(RedisOptions{Addr: mr.Addr()}, logger)
	require.NoError(t, err)
	defer s.Close()

	mr.SetError("ERR injected failure")
	ctx := context.Background()

	_, _, err = s.Get(ctx, snapshotKey)
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, snapshotKey, "payload", time.Minute))
	assert.Error(t, s.Ping(ctx))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(RedisOptions{Addr: addr}, nil)
	assert.Error(t, err)
}
