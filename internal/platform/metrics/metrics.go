package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the attendance core.
type Metrics struct {
	CheckIns            *prometheus.CounterVec
	CheckOuts           prometheus.Counter
	DuplicateCheckIns   prometheus.Counter
	Handovers           *prometheus.CounterVec
	DeficitHandovers    prometheus.Counter
	RejectedHandovers   *prometheus.CounterVec
	GeolocationFailures *prometheus.CounterVec
	FixLatency          prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registry so tests can
// instantiate the set more than once per process.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_check_ins_total",
			Help: "Committed check-ins by geofence status (confirmed or flagged)",
		}, []string{"status"}),
		CheckOuts: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_check_outs_total",
			Help: "Committed check-outs",
		}),
		DuplicateCheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_duplicate_check_ins_total",
			Help: "Check-in attempts rejected because an open record already existed",
		}),
		Handovers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_weapon_handovers_total",
			Help: "Accepted weapon handovers by action",
		}, []string{"action"}),
		DeficitHandovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_ammo_deficit_handovers_total",
			Help: "Accepted handovers that reported an ammunition deficit",
		}),
		RejectedHandovers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_rejected_handovers_total",
			Help: "Handovers rejected before persisting anything, by reason",
		}, []string{"reason"}),
		GeolocationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_geolocation_failures_total",
			Help: "Failed location fix acquisitions by kind",
		}, []string{"kind"}),
		FixLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchpost_location_fix_seconds",
			Help:    "Time spent acquiring a location fix",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// ObserveFixLatency records one fix acquisition duration.
func (m *Metrics) ObserveFixLatency(d time.Duration) {
	m.FixLatency.Observe(d.Seconds())
}
