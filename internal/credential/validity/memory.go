package validity

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration      = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Memory is an in-process Cache backed by go-cache.
type Memory struct {
	cache *gocache.Cache
}

func NewMemory(expiration, cleanupInterval time.Duration) *Memory {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Memory{cache: gocache.New(expiration, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) (time.Time, bool) {
	value, found := m.cache.Get(key)
	if !found {
		return time.Time{}, false
	}
	t, ok := value.(time.Time)
	return t, ok
}

func (m *Memory) Set(_ context.Context, key string, validUntil time.Time) {
	m.cache.Set(key, validUntil, gocache.DefaultExpiration)
}

func (m *Memory) Invalidate(_ context.Context, key string) {
	m.cache.Delete(key)
}
