package validity

import (
	"context"
	"log/slog"
	"time"

	"trafficreg/pkg/platform/circuit"
)

// Fallback serves from Redis while it is healthy and from an in-process
// Memory cache while the breaker is open. Writes always reach the memory
// cache as well as Redis.
type Fallback struct {
	primary *Redis
	local   *Memory
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewFallback(primary *Redis, local *Memory, breaker *circuit.Breaker, logger *slog.Logger) *Fallback {
	if breaker == nil {
		breaker = circuit.New("validity-cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, local: local, breaker: breaker, logger: logger}
}

func (f *Fallback) Get(ctx context.Context, key string) (time.Time, bool) {
	t, ok, err := f.primary.lookup(ctx, key)
	if f.usePrimary(ctx, err) {
		return t, ok
	}
	return f.local.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key string, validUntil time.Time) {
	f.local.Set(ctx, key, validUntil)
	f.usePrimary(ctx, f.primary.store(ctx, key, validUntil))
}

func (f *Fallback) Invalidate(ctx context.Context, key string) {
	f.local.Invalidate(ctx, key)
	f.usePrimary(ctx, f.primary.remove(ctx, key))
}

// Degraded reports whether reads are being served locally.
func (f *Fallback) Degraded() bool {
	return f.breaker.IsOpen()
}

func (f *Fallback) usePrimary(ctx context.Context, err error) bool {
	if err != nil {
		_, change := f.breaker.RecordFailure()
		if change.Opened {
			f.logger.WarnContext(ctx, "validity cache degraded to in-process fallback",
				"breaker", f.breaker.Name(), "error", err)
		}
		return false
	}
	usePrimary, change := f.breaker.RecordSuccess()
	if change.Closed {
		f.logger.InfoContext(ctx, "validity cache recovered", "breaker", f.breaker.Name())
	}
	return usePrimary
}
