// Package lockout throttles repeated failed logins per login id.
package lockout

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config bounds failures: after MaxAttempts failures inside Window the key
// stays locked until the window expires.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	return c
}

// Limiter tracks failures per key.
type Limiter interface {
	// Locked reports whether key is locked and for how much longer.
	Locked(ctx context.Context, key string) (bool, time.Duration, error)
	// Fail records a failure and returns the failure count in the window.
	Fail(ctx context.Context, key string) (int, error)
	// Reset clears key after a successful login.
	Reset(ctx context.Context, key string) error
}

// Redis keeps counters in Redis so every API replica shares them.
type Redis struct {
	client redis.UniversalClient
	cfg    Config
	prefix string
}

// NewRedis returns a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg.withDefaults(), prefix: "sheetshare:login_failures:"}
}

func (r *Redis) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	k := r.prefix + key
	v, err := r.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("lockout get: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < r.cfg.MaxAttempts {
		return false, 0, nil
	}
	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return true, r.cfg.Window, nil
	}
	return true, ttl, nil
}

func (r *Redis) Fail(ctx context.Context, key string) (int, error) {
	k := r.prefix + key
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("lockout incr: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, k, r.cfg.Window).Err(); err != nil {
			return int(n), fmt.Errorf("lockout expire: %w", err)
		}
	}
	return int(n), nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("lockout reset: %w", err)
	}
	return nil
}

// Memory is a single-process limiter used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	cfg     Config
	now     func() time.Time
	entries map[string]*memEntry
}

type memEntry struct {
	count   int
	expires time.Time
}

// NewMemory returns an in-process limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{cfg: cfg.withDefaults(), now: time.Now, entries: make(map[string]*memEntry)}
}

func (m *Memory) get(key string) *memEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || e.count < m.cfg.MaxAttempts {
		return false, 0, nil
	}
	return true, e.expires.Sub(m.now()), nil
}

func (m *Memory) Fail(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil {
		e = &memEntry{expires: m.now().Add(m.cfg.Window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (m *Memory) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
