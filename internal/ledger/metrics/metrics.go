package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger executor.
// Tracks committed and reverted operations and the time spent holding the
// writer lock.
type Metrics struct {
	Committed  *prometheus.CounterVec
	Reverted   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec
	Events     prometheus.Counter
}

// New creates ledger metrics registered with reg. A nil registerer yields
// unregistered collectors, which tests use to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Committed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficreg_ledger_ops_committed_total",
			Help: "Total number of committed ledger operations",
		}, []string{"operation"}),
		Reverted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficreg_ledger_ops_reverted_total",
			Help: "Total number of reverted ledger operations by error code",
		}, []string{"operation", "code"}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trafficreg_ledger_op_duration_seconds",
			Help:    "Duration of ledger operations under the writer lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Events: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_ledger_events_committed_total",
			Help: "Total number of events committed with ledger operations",
		}),
	}
}

// ObserveCommit records a committed operation and its events.
// Call with time.Now() captured when the writer lock was acquired.
func (m *Metrics) ObserveCommit(operation string, events int, start time.Time) {
	m.Committed.WithLabelValues(operation).Inc()
	m.Events.Add(float64(events))
	m.OpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRevert records a reverted operation.
func (m *Metrics) ObserveRevert(operation, code string, start time.Time) {
	m.Reverted.WithLabelValues(operation, code).Inc()
	m.OpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
