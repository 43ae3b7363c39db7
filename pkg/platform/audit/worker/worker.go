package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "trafficreg/pkg/platform/audit"
)

// Publisher delivers committed events to external observers.
type Publisher interface {
	Publish(ctx context.Context, events []audit.Event) error
}

// TxRunner scopes one relay pass. Postgres deployments pass a runner that
// opens a transaction so Pending's row locks hold until MarkPublished.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func directRunner(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const (
	defaultBatchSize = 100
	defaultInterval  = time.Second
)

// Worker relays committed events from the audit outbox to a Publisher.
// Delivery is at-least-once: a batch is only marked published after the
// publisher acknowledged it.
type Worker struct {
	store     audit.Store
	publisher Publisher
	runInTx   TxRunner
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

type Option func(*Worker)

func WithTxRunner(r TxRunner) Option {
	return func(w *Worker) {
		if r != nil {
			w.runInTx = r
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(store audit.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		runInTx:   directRunner,
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays batches until ctx is cancelled. Publish failures are logged and
// retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.Drain(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						w.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// Drain relays one batch and reports how many events were published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	var published int
	err := w.runInTx(ctx, func(ctx context.Context) error {
		events, err := w.store.Pending(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		if err := w.publisher.Publish(ctx, events); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if err := w.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		w.logger.DebugContext(ctx, "outbox batch relayed", "count", published)
	}
	return published, nil
}
