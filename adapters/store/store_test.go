package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore().(*MemoryStore)
	s.now = func() time.Time { return now }

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "aws-secret:linker", "value", time.Hour))
	val, ok, err := s.Get(ctx, "aws-secret:linker")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	now = now.Add(time.Hour)
	_, ok, err = s.Get(ctx, "aws-secret:linker")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "other", "v", time.Minute))
	assert.Len(t, s.entries, 1)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client)

	_, ok, err := s.Get(ctx, "aws-secret:linker")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "aws-secret:linker", "value", time.Hour))
	assert.True(t, mr.Exists("linker:cache:aws-secret:linker"))

	val, ok, err := s.Get(ctx, "aws-secret:linker")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	mr.FastForward(2 * time.Hour)
	_, ok, err = s.Get(ctx, "aws-secret:linker")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, _, err = NewRedisStore(client).Get(context.Background(), "k")
	assert.Error(t, err)
}
