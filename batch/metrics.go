package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thorium/qkd/qkd"
)

// Metrics exposes batch progress to a prometheus registry.
type Metrics struct {
	sessions  prometheus.Counter
	successes *prometheus.CounterVec
	qber      prometheus.Histogram
	keyBits   prometheus.Histogram
}

// NewMetrics registers and returns the batch metric collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qkd",
			Name:      "sessions_total",
			Help:      "Total QKD sessions run.",
		}),
		successes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qkd",
			Name:      "session_outcomes_total",
			Help:      "QKD session outcomes by terminal state.",
		}, []string{"state"}),
		qber: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qkd",
			Name:      "sampled_qber",
			Help:      "Observed QBER over the public sample.",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 11),
		}),
		keyBits: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qkd",
			Name:      "final_key_bits",
			Help:      "Final secured key length in bits.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
		}),
	}
}

// Observe records one completed session.
func (m *Metrics) Observe(res qkd.Result) {
	m.sessions.Inc()
	m.successes.WithLabelValues(string(res.State)).Inc()
	m.qber.Observe(res.Check.ErrorRate)
	if res.Success {
		m.keyBits.Observe(float64(res.FinalKeyLength))
	}
}
