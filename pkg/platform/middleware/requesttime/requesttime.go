// Package requesttime pins one "now" per HTTP request, so every ledger
// operation the request performs is stamped with the same instant.
package requesttime

import (
	"net/http"
	"time"

	"trafficreg/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return middleware(time.Now)(next)
}

func middleware(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
