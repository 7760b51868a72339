package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, l Limiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		locked, _, err := l.Locked(ctx, "alice")
		require.NoError(t, err)
		require.False(t, locked, "attempt %d", i)
		n, err := l.Fail(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	locked, ttl, err := l.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Greater(t, ttl, time.Duration(0))

	other, _, err := l.Locked(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, other)

	advance(2 * time.Minute)
	locked, _, err = l.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked, "window expired")

	_, err = l.Fail(ctx, "carol")
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "carol"))
	n, err := l.Fail(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exercise(t, NewRedis(client, Config{MaxAttempts: 3, Window: time.Minute}), mr.FastForward)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Config{MaxAttempts: 3, Window: time.Minute})
	m.now = func() time.Time { return now }

	exercise(t, m, func(d time.Duration) { now = now.Add(d) })
}
