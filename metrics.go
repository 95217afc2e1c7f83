package gridastar

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records search activity. A nil *Metrics records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	steps      prometheus.Counter
	restarts   prometheus.Counter
	expansions prometheus.Histogram
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: "found", "exhausted", "cancelled"
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridastar_runs_total",
			Help: "Finished search runs by outcome",
		}, []string{"outcome"}),

		steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridastar_steps_total",
			Help: "Search iterations executed across all runs",
		}),

		restarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridastar_restarts_total",
			Help: "Runs restarted because a wall landed on an expanded cell",
		}),

		expansions: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridastar_run_expansions",
			Help:    "Cells expanded per finished run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridastar_run_duration_seconds",
			Help:    "Wall time of finished runs",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60},
		}),
	}
}

func (m *Metrics) observeStep() {
	if m == nil {
		return
	}
	m.steps.Inc()
}

func (m *Metrics) observeRestart() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}

func (m *Metrics) observeRun(state State, expanded int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state.String()).Inc()
	m.expansions.Observe(float64(expanded))
	m.duration.Observe(elapsed.Seconds())
}
