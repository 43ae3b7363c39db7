package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks driver license lifecycle and validity lookups.
type Metrics struct {
	Issued         prometheus.Counter
	Revoked        prometheus.Counter
	StandingWrites *prometheus.CounterVec
	ValidityChecks *prometheus.CounterVec
}

// New creates license metrics registered with reg. A nil registerer yields
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_licenses_issued_total",
			Help: "Total number of driver licenses issued",
		}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafficreg_licenses_revoked_total",
			Help: "Total number of driver licenses revoked",
		}),
		StandingWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficreg_license_standing_updates_total",
			Help: "Standing updates applied by the offence engine, by resulting status",
		}, []string{"status"}),
		ValidityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficreg_license_validity_checks_total",
			Help: "Validity checks by the source that answered them",
		}, []string{"source"}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m == nil {
		return
	}
	m.Issued.Inc()
}

func (m *Metrics) IncrementRevoked() {
	if m == nil {
		return
	}
	m.Revoked.Inc()
}

func (m *Metrics) ObserveStanding(status string) {
	if m == nil {
		return
	}
	m.StandingWrites.WithLabelValues(status).Inc()
}

// ObserveValidityCheck records whether the cache or the store answered.
func (m *Metrics) ObserveValidityCheck(cached bool) {
	if m == nil {
		return
	}
	source := "store"
	if cached {
		source = "cache"
	}
	m.ValidityChecks.WithLabelValues(source).Inc()
}
