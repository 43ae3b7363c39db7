package validity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "trafficreg:validity:"

// Redis is a Cache shared by every process of a deployment. Failures are
// logged and treated as misses; the registry stays the source of truth.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (time.Time, bool) {
	t, ok, err := r.lookup(ctx, key)
	if err != nil {
		r.logger.WarnContext(ctx, "validity cache read failed", "key", key, "error", err)
	}
	return t, ok
}

func (r *Redis) Set(ctx context.Context, key string, validUntil time.Time) {
	if err := r.store(ctx, key, validUntil); err != nil {
		r.logger.WarnContext(ctx, "validity cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, key string) {
	if err := r.remove(ctx, key); err != nil {
		r.logger.WarnContext(ctx, "validity cache invalidation failed", "key", key, "error", err)
	}
}

// lookup distinguishes a miss (ok false, nil error) from a failed read.
func (r *Redis) lookup(ctx context.Context, key string) (time.Time, bool, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if v == 0 {
		return time.Time{}, true, nil
	}
	return time.Unix(v, 0).UTC(), true, nil
}

func (r *Redis) store(ctx context.Context, key string, validUntil time.Time) error {
	var v int64
	if !validUntil.IsZero() {
		v = validUntil.Unix()
	}
	return r.client.Set(ctx, keyPrefix+key, v, r.ttl).Err()
}

func (r *Redis) remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}
