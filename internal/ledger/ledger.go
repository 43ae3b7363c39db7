// Package ledger serialises every mutating registry operation.
//
// A Ledger is the single writer of the system: Submit runs one operation at
// a time under an exclusive lock and either commits all of its writes and
// events or leaves state untouched. Reads go through View and never observe
// a partially applied operation.
//
// Operations submitted while another operation is running on the same
// context (the offence engine calling into the license registry) join the
// outer operation instead of starting a new one, so the whole call tree
// commits or reverts together.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledgermetrics "trafficreg/internal/ledger/metrics"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/requestcontext"
)

// Receipt reports a committed operation.
type Receipt struct {
	Seq         uint64        `json:"seq"`
	Operation   string        `json:"operation"`
	Caller      id.Address    `json:"caller"`
	CommittedAt time.Time     `json:"committed_at"`
	Events      []audit.Event `json:"events"`
}

// Backend provides the atomicity of one operation.
type Backend interface {
	// Begin starts an operation. The returned context carries whatever the
	// backend's stores need to write through the operation (an SQL tx).
	Begin(ctx context.Context) (context.Context, Tx, error)
}

// Tx is one in-flight operation on a Backend.
type Tx interface {
	// NextSeq returns the sequence number the operation commits under.
	NextSeq(ctx context.Context) (uint64, error)
	Commit(ctx context.Context, receipt Receipt) error
	Rollback() error
}

type opKey struct{}

type opState struct {
	seq       uint64
	operation string
	caller    id.Address
	now       time.Time
	events    []audit.Event
	onCommit  []func(ctx context.Context)
}

// Ledger is the serialized executor shared by every registry.
type Ledger struct {
	mu      sync.RWMutex
	backend Backend
	events  audit.Store
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithClock overrides the source of operation timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) {
		l.tracer = tp.Tracer("trafficreg/ledger")
	}
}

func New(backend Backend, events audit.Store, opts ...Option) *Ledger {
	l := &Ledger{
		backend: backend,
		events:  events,
		logger:  slog.Default(),
		tracer:  otel.Tracer("trafficreg/ledger"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit runs fn as one atomic operation named op.
//
// The operation time is pinned once (requestcontext.Now returns it for the
// whole call tree) unless the caller already pinned one. Events emitted with
// Emit are committed with the operation, stamped with its sequence number.
func (l *Ledger) Submit(ctx context.Context, op string, fn func(ctx context.Context) error) (Receipt, error) {
	if st := current(ctx); st != nil {
		if err := fn(ctx); err != nil {
			return Receipt{}, err
		}
		return Receipt{Seq: st.seq, Operation: st.operation, Caller: st.caller, CommittedAt: st.now}, nil
	}

	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("ledger.operation", op),
		attribute.String("ledger.caller", requestcontext.Caller(ctx).Hex()),
	))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()
	start := time.Now()

	receipt, err := l.run(ctx, op, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		if l.metrics != nil {
			l.metrics.ObserveRevert(op, string(dErrors.CodeOf(err)), start)
		}
		l.logger.DebugContext(ctx, "ledger operation reverted",
			"operation", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return Receipt{}, err
	}

	span.SetAttributes(attribute.Int64("ledger.seq", int64(receipt.Seq))) //nolint:gosec // sequences fit in int64
	if l.metrics != nil {
		l.metrics.ObserveCommit(op, len(receipt.Events), start)
	}
	l.logger.InfoContext(ctx, "ledger operation committed",
		"operation", op,
		"seq", receipt.Seq,
		"caller", receipt.Caller.Hex(),
		"events", len(receipt.Events),
		"request_id", requestcontext.RequestID(ctx),
	)
	return receipt, nil
}

func (l *Ledger) run(ctx context.Context, op string, fn func(ctx context.Context) error) (Receipt, error) {
	opCtx, tx, err := l.backend.Begin(ctx)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin operation")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seq, err := tx.NextSeq(opCtx)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate sequence")
	}

	now := l.clock().UTC()
	if requestcontext.HasTime(ctx) {
		now = requestcontext.Now(ctx)
	}
	st := &opState{
		seq:       seq,
		operation: op,
		caller:    requestcontext.Caller(ctx),
		now:       now,
	}
	opCtx = requestcontext.WithTime(context.WithValue(opCtx, opKey{}, st), now)

	if err := fn(opCtx); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		Seq:         seq,
		Operation:   op,
		Caller:      st.caller,
		CommittedAt: now,
		Events:      make([]audit.Event, 0, len(st.events)),
	}
	requestID := requestcontext.RequestID(ctx)
	for _, e := range st.events {
		e.ID = uuid.New()
		e.Seq = seq
		e.Actor = st.caller
		e.Timestamp = now
		e.RequestID = requestID
		if err := l.events.Append(opCtx, e); err != nil {
			return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
		}
		receipt.Events = append(receipt.Events, e)
	}

	if err := tx.Commit(opCtx, receipt); err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit operation")
	}
	committed = true
	for _, hook := range st.onCommit {
		hook(ctx)
	}
	return receipt, nil
}

// View runs fn against committed state. Inside an operation it runs
// directly so registries can read their own uncommitted writes.
func (l *Ledger) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if current(ctx) != nil {
		return fn(ctx)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(ctx)
}

// Emit buffers an event on the running operation. It is a no-op outside
// Submit; events only exist for committed operations.
func Emit(ctx context.Context, event audit.Event) {
	if st := current(ctx); st != nil {
		st.events = append(st.events, event)
	}
}

// AfterCommit registers fn to run once the running operation has committed.
// Outside an operation fn runs immediately. Reverted operations drop their
// hooks.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if st := current(ctx); st != nil {
		st.onCommit = append(st.onCommit, fn)
		return
	}
	fn(ctx)
}

// InOperation reports whether ctx belongs to a running operation.
func InOperation(ctx context.Context) bool {
	return current(ctx) != nil
}

func current(ctx context.Context) *opState {
	st, _ := ctx.Value(opKey{}).(*opState)
	return st
}

// Events exposes the committed event log.
func (l *Ledger) Events() audit.Store {
	return l.events
}
