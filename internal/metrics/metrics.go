package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	ingestions *prometheus.CounterVec
	storeOps   *prometheus.CounterVec
	renders    prometheus.Histogram
	inFlight   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masterimage",
			Name:      "ingestions_total",
			Help:      "Source ingestions by classification outcome.",
		}, []string{"outcome"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masterimage",
			Name:      "store_operations_total",
			Help:      "Master store operations by kind and result.",
		}, []string{"op", "result"}),
		renders: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "masterimage",
			Name:      "render_duration_seconds",
			Help:      "Time spent producing derived outputs.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "masterimage",
			Name:      "image_operations_in_flight",
			Help:      "Decode/encode operations currently holding a worker slot.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ingestions, m.storeOps, m.renders, m.inFlight)
	}
	return m
}

func (m *Metrics) ObserveIngest(outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStore(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renders.Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
