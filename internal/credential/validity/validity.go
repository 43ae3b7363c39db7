// Package validity caches credential validity windows.
//
// A window is the instant until which a token is valid: the expiry date of
// an ACTIVE license, the far future for an ACTIVE vehicle registration, or
// the zero time for anything else. Caching the window rather than a boolean
// keeps cached answers correct as time passes. Registries invalidate a
// token's window after every committed mutation of it.
package validity

import (
	"context"
	"time"
)

// Cache stores validity windows keyed by registry and token.
type Cache interface {
	Get(ctx context.Context, key string) (time.Time, bool)
	Set(ctx context.Context, key string, validUntil time.Time)
	Invalidate(ctx context.Context, key string)
}

// Never marks a window for credentials without an expiry.
var Never = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Valid reports whether a window is open at now.
func Valid(validUntil, now time.Time) bool {
	return now.Before(validUntil)
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (time.Time, bool) {
	return time.Time{}, false
}

func (Nop) Set(context.Context, string, time.Time) {}

func (Nop) Invalidate(context.Context, string) {}
