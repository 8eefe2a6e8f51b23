package pusch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/observe-l/ulsch/lte"
)

// Metrics are the Prometheus collectors updated by an Encoder. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	encodes  *prometheus.CounterVec // successful encodes (by rv)
	failures *prometheus.CounterVec // failed encodes (by error class)
	duration prometheus.Histogram   // wall time of one Encode call
	uciRE    *prometheus.GaugeVec   // resource elements of the last encode (by field)
}

// NewMetrics registers the encoder collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		encodes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulsch_encodes_total",
				Help: "Subframes encoded, by redundancy version",
			},
			[]string{"rv"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulsch_encode_failures_total",
				Help: "Rejected encode calls, by error class",
			},
			[]string{"class"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ulsch_encode_duration_seconds",
				Help:    "Time spent encoding one subframe",
				Buckets: prometheus.ExponentialBuckets(50e-6, 2, 14),
			},
		),
		uciRE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ulsch_uci_resource_elements",
				Help: "Resource elements taken by each control field in the last encode",
			},
			[]string{"field"},
		),
	}
}

var rvLabels = [...]string{"0", "1", "2", "3"}

func (m *Metrics) observe(res *Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(lte.ErrorClass(err)).Inc()
		return
	}
	m.encodes.WithLabelValues(rvLabels[res.RV]).Inc()
	m.uciRE.WithLabelValues("cqi").Set(float64(res.Control.CQI.NofRE))
	m.uciRE.WithLabelValues("ri").Set(float64(res.Control.RI.NofRE))
	m.uciRE.WithLabelValues("ack").Set(float64(res.Control.ACK.NofRE))
}
