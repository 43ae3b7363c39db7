package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks offence accounting, renewals and the status sweep.
type Metrics struct {
	PointsDeducted   prometheus.Counter
	Suspensions      prometheus.Counter
	Renewals         prometheus.Counter
	SweepTransitions *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PointsDeducted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_offence_points_deducted_total",
			Help: "Total demerit points deducted from driver licenses",
		}),
		Suspensions: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_offence_suspensions_total",
			Help: "Licenses suspended by running out of points",
		}),
		Renewals: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_offence_renewals_total",
			Help: "Licenses renewed under a renew rule",
		}),
		SweepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficreg_offence_sweep_transitions_total",
			Help: "Status changes applied by the license status sweep, by new status",
		}, []string{"status"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficreg_offence_sweep_duration_seconds",
			Help:    "Duration of license status sweeps",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveDeduction(points int, suspended bool) {
	if m == nil {
		return
	}
	m.PointsDeducted.Add(float64(points))
	if suspended {
		m.Suspensions.Inc()
	}
}

func (m *Metrics) IncrementRenewals() {
	if m == nil {
		return
	}
	m.Renewals.Inc()
}

func (m *Metrics) ObserveSweep(transitions map[string]int, took time.Duration) {
	if m == nil {
		return
	}
	for status, n := range transitions {
		m.SweepTransitions.WithLabelValues(status).Add(float64(n))
	}
	m.SweepDuration.Observe(took.Seconds())
}
