// Package monitor exposes search progress as Prometheus metrics.
package monitor

import (
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

const namespace = "toxsearch"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	Registry      *prometheus.Registry
	Trials        *prometheus.CounterVec
	TrialDuration prometheus.Histogram
	BestScore     prometheus.Gauge
	Epochs        prometheus.Counter

	mu   sync.Mutex
	best float64
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Search trials finished, by status.",
		}, []string{"status"}),
		TrialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_duration_seconds",
			Help:      "Wall time of one search trial.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		BestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Best finite trial score seen so far.",
		}),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Training epochs completed across all networks.",
		}),
	}
	m.best = math.NaN()
	m.BestScore.Set(m.best)
	m.Registry.MustRegister(m.Trials, m.TrialDuration, m.BestScore, m.Epochs)
	return m
}

// ObserveTrial counts t and raises the best score if t beats it.
func (m *Metrics) ObserveTrial(t search.Trial) {
	status := "ok"
	if t.Diverged {
		status = "diverged"
	}
	m.Trials.WithLabelValues(status).Inc()
	m.TrialDuration.Observe(t.Duration.Seconds())
	if math.IsNaN(t.Score) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if math.IsNaN(m.best) || t.Score > m.best {
		m.best = t.Score
		m.BestScore.Set(t.Score)
	}
}

// ObserveEpoch counts one finished training epoch.
func (m *Metrics) ObserveEpoch() { m.Epochs.Inc() }

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "monitor: create dirs")
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, m.Registry), "monitor: write textfile")
}
