package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trafficreg/internal/ratelimit/metrics"
	"trafficreg/internal/ratelimit/models"
	"trafficreg/pkg/platform/circuit"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/middleware/metadata"
	"trafficreg/pkg/requestcontext"
)

// StatusHeader is set to "degraded" while the fallback enforces limits.
const StatusHeader = "X-RateLimit-Status"

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// Middleware limits each caller, or each client IP before authentication,
// per request class. With a fallback configured, primary failures trip a
// circuit breaker and the fallback enforces limits until the primary has
// answered enough consecutive checks again.
type Middleware struct {
	primary  Limiter
	fallback Limiter
	breaker  *circuit.Breaker
	limits   map[models.Class]models.Limit
	metrics  *metrics.Metrics
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithLimit(class models.Class, limit models.Limit) Option {
	return func(m *Middleware) {
		m.limits[class] = limit
	}
}

func WithFallback(fallback Limiter, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{
		primary: primary,
		logger:  logger,
		limits: map[models.Class]models.Limit{
			models.ClassRead:  {Requests: 600, Window: time.Minute},
			models.ClassWrite: {Requests: 120, Window: time.Minute},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fallback != nil && m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		class := models.ClassOf(r.Method)
		limit := m.limits[class]
		key := models.Key(class, subject(ctx))

		result, degraded, err := m.check(ctx, key, limit)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, admitting request", "error", err, "class", class)
			next.ServeHTTP(w, r)
			return
		}

		m.metrics.ObserveDecision(string(class), result.Allowed)
		addHeaders(w, result, degraded)
		if !result.Allowed {
			writeExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool, error) {
	result, err := m.primary.Allow(ctx, key, limit.Requests, limit.Window)
	if m.fallback == nil {
		return result, false, err
	}
	if err != nil {
		_, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.WarnContext(ctx, "rate limiter degraded to in-process fallback", "error", err)
			m.metrics.SetDegraded(true)
		}
	} else {
		usePrimary, change := m.breaker.RecordSuccess()
		if change.Closed {
			m.logger.InfoContext(ctx, "rate limiter recovered")
			m.metrics.SetDegraded(false)
		}
		if usePrimary {
			return result, false, nil
		}
	}
	if !m.breaker.IsOpen() {
		return nil, false, err
	}
	result, err = m.fallback.Allow(ctx, key, limit.Requests, limit.Window)
	return result, true, err
}

// subject is the authenticated caller, or the client IP before
// authentication has run.
func subject(ctx context.Context) string {
	if caller := requestcontext.Caller(ctx); !caller.IsZero() {
		return caller.Hex()
	}
	return "ip:" + metadata.GetClientIP(ctx)
}

func addHeaders(w http.ResponseWriter, result *models.Result, degraded bool) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if degraded {
		w.Header().Set(StatusHeader, "degraded")
	}
}

func writeExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "Too many requests. Please try again later.",
		RetryAfter:       result.RetryAfter,
	})
}
