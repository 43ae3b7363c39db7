package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"trafficreg/internal/credential/validity"
	jwttoken "trafficreg/internal/jwt_token"
	"trafficreg/internal/platform/config"
	"trafficreg/internal/platform/httpserver"
	"trafficreg/internal/platform/kafka"
	"trafficreg/internal/platform/logger"
	"trafficreg/internal/platform/metrics"
	"trafficreg/internal/platform/otel"
	"trafficreg/internal/platform/postgres"
	"trafficreg/internal/platform/redis"
	ratelimitmetrics "trafficreg/internal/ratelimit/metrics"
	ratelimit "trafficreg/internal/ratelimit/middleware"
	ratelimitmodels "trafficreg/internal/ratelimit/models"
	"trafficreg/internal/ratelimit/store/bucket"
	"trafficreg/internal/system"
	httptransport "trafficreg/internal/transport/http"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/audit/worker"
	"trafficreg/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "trafficreg:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("flushing spans failed", "error", err)
		}
	}()

	deployer, err := id.ParseAddress(cfg.Deployer)
	if err != nil {
		return fmt.Errorf("TRAFFICREG_DEPLOYER: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Database.Migrate {
			if err := postgres.Migrate(db); err != nil {
				return err
			}
		}
	}

	var cache validity.Cache = validity.NewMemory(cfg.Redis.ValidityTTL, time.Minute)
	rd, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rd != nil {
		defer rd.Close()
		cache = validity.NewFallback(
			validity.NewRedis(rd.Client, cfg.Redis.ValidityTTL, log),
			validity.NewMemory(cfg.Redis.ValidityTTL, time.Minute),
			circuit.New("validity-cache"),
			log,
		)
	}

	sys, err := system.Deploy(ctx, system.Options{
		Deployer:   deployer,
		DB:         db,
		Cache:      cache,
		Logger:     log,
		Registerer: reg,
	})
	if err != nil {
		return fmt.Errorf("deploy registries: %w", err)
	}

	limiter := newRateLimiter(cfg.RateLimit, rd, reg, log)

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	router := httptransport.NewRouter(
		httptransport.NewHandler(httptransport.ServicesFor(sys), log),
		httptransport.RouterConfig{
			Validator: jwttoken.NewJWTServiceAdapter(jwt),
			Metrics:   metrics.New(reg),
			Logger:    log,
			RateLimit: limiter.Handler,
		},
	)
	api := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	var relay *worker.Worker
	if cfg.PublishingEnabled() {
		publisher, err := kafka.New(ctx, cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer publisher.Close()

		opts := []worker.Option{
			worker.WithBatchSize(cfg.Outbox.BatchSize),
			worker.WithInterval(cfg.Outbox.Interval),
			worker.WithLogger(log),
		}
		if db != nil {
			opts = append(opts, worker.WithTxRunner(newOutboxTx(db).Runner()))
		}
		relay = worker.NewWorker(sys.Events, publisher, opts...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(log, "api", api) })
	g.Go(func() error { return serve(log, "metrics", metricsSrv) })

	if relay != nil {
		g.Go(func() error {
			log.InfoContext(gctx, "outbox relay started", "topic", cfg.Kafka.Topic)
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		log.Info("shutting down", "grace", cfg.ShutdownGrace)
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func serve(log *slog.Logger, name string, srv *http.Server) error {
	log.Info("listening", "server", name, "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// newRateLimiter shares budgets through Redis when it is configured, with a
// per-process fallback behind a circuit breaker.
func newRateLimiter(cfg config.RateLimitConfig, rd *redis.Client, reg prometheus.Registerer, log *slog.Logger) *ratelimit.Middleware {
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(!cfg.Enabled),
		ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimit.WithLimit(ratelimitmodels.ClassRead, ratelimitmodels.Limit{Requests: cfg.ReadRequests, Window: cfg.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassWrite, ratelimitmodels.Limit{Requests: cfg.WriteRequests, Window: cfg.Window}),
	}
	if rd == nil {
		return ratelimit.New(bucket.New(), log, opts...)
	}
	opts = append(opts, ratelimit.WithFallback(bucket.New(), circuit.New("ratelimit")))
	return ratelimit.New(bucket.NewRedis(rd.Client), log, opts...)
}
