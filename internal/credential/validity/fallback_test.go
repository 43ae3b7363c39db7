package validity

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"trafficreg/pkg/platform/circuit"
)

// flakyRedis fails every command while down is set.
type flakyRedis struct {
	redis.Cmdable
	down bool
	data map[string]int64
}

var errDown = errors.New("connection refused")

func (f *flakyRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	v, ok := f.data[key]
	switch {
	case f.down:
		cmd.SetErr(errDown)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(strconv.FormatInt(v, 10))
	}
	return cmd
}

func (f *flakyRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	if f.down {
		cmd.SetErr(errDown)
		return cmd
	}
	f.data[key] = value.(int64)
	cmd.SetVal("OK")
	return cmd
}

func (f *flakyRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	if f.down {
		cmd.SetErr(errDown)
		return cmd
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return cmd
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	until := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	remote := &flakyRedis{data: map[string]int64{}}
	cache := NewFallback(
		NewRedis(remote, time.Minute, nil),
		NewMemory(time.Minute, time.Minute),
		circuit.New("validity-cache", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)),
		nil,
	)

	cache.Set(ctx, "dl:1", until)
	got, ok := cache.Get(ctx, "dl:1")
	assert.True(t, ok)
	assert.Equal(t, until, got)
	assert.Equal(t, until.Unix(), remote.data[keyPrefix+"dl:1"])

	remote.down = true
	cache.Invalidate(ctx, "dl:1")
	assert.False(t, cache.Degraded(), "one failure stays below the threshold")
	cache.Set(ctx, "dl:2", until)
	assert.True(t, cache.Degraded())

	_, ok = cache.Get(ctx, "dl:1")
	assert.False(t, ok, "local invalidation survives the outage")
	got, ok = cache.Get(ctx, "dl:2")
	assert.True(t, ok)
	assert.Equal(t, until, got)

	remote.down = false
	_, ok = cache.Get(ctx, "dl:3")
	assert.False(t, ok)
	assert.False(t, cache.Degraded(), "a healthy probe closes the breaker")
}
