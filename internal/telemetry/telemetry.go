package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamauc"

// Metrics is the set of collectors updated while batches are ingested.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Samples  prometheus.Counter
	Batches  prometheus.Counter
	Rejected prometheus.Counter
	Duration prometheus.Histogram
	AUC      *prometheus.GaugeVec
}

// New registers the streamauc metrics on reg. Passing nil registers nothing,
// which is useful in tests that create many collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Samples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples folded into the confusion matrix.",
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches accepted by the accumulator.",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_batches_total",
			Help:      "Batches rejected because of a shape or label error.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent folding one batch into the counters.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		AUC: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auc",
			Help:      "Current area under the ROC curve.",
		}, []string{"class", "aggregation"}),
	}
}

// ObserveBatch records an accepted batch of n samples.
func (m *Metrics) ObserveBatch(n int, took time.Duration) {
	if m == nil {
		return
	}
	m.Batches.Inc()
	m.Samples.Add(float64(n))
	m.Duration.Observe(took.Seconds())
}

// ObserveRejected records a rejected batch.
func (m *Metrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

// SetAUC publishes the AUC for a class (or -1 for an aggregate) under the
// given aggregation name.
func (m *Metrics) SetAUC(class int, aggregation string, value float64) {
	if m == nil {
		return
	}
	label := "all"
	if class >= 0 {
		label = strconv.Itoa(class)
	}
	m.AUC.WithLabelValues(label, aggregation).Set(value)
}

// ResetAUC drops every published AUC value.
func (m *Metrics) ResetAUC() {
	if m == nil {
		return
	}
	m.AUC.Reset()
}
