// Package metrics exports the progress of the test controller as prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"pintest/pkg/harness"
	"pintest/pkg/port"
)

// Observer implements harness.Observer on its own registry.
type Observer struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	faults   *prometheus.CounterVec
	holds    *prometheus.CounterVec
	edges    prometheus.Counter
	duration prometheus.Histogram
	phase    prometheus.Gauge
}

func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintest_runs_total",
			Help: "Finished test runs by outcome.",
		}, []string{"outcome"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintest_faults_total",
			Help: "Fatal protocol faults by kind.",
		}, []string{"kind"}),
		holds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintest_hold_timeouts_total",
			Help: "Hold phase timeouts by phase. They do not end the run.",
		}, []string{"phase"}),
		edges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pintest_edges_total",
			Help: "Rising edges counted in the sequence phase.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pintest_run_duration_seconds",
			Help:    "Time from start request to the end of a run.",
			Buckets: prometheus.LinearBuckets(1, 1, 20),
		}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pintest_phase",
			Help: "Current phase of the state machine (0 WaitButton, 1 WaitAllHigh, 2 WaitAllLow, 3 Sequence, 4 Success, 5 Fail).",
		}),
	}

	o.registry.MustRegister(o.runs, o.faults, o.holds, o.edges, o.duration, o.phase)
	return o
}

// Registry returns the registry holding all metrics, for the /metrics handler.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

func (o *Observer) PhaseEntered(p harness.Phase) {
	o.phase.Set(float64(p))
}

func (o *Observer) Edge(port.Event) {
	o.edges.Inc()
}

func (o *Observer) HoldTimeout(p harness.Phase) {
	o.holds.WithLabelValues(p.String()).Inc()
}

func (o *Observer) RunFinished(outcome harness.Outcome, d time.Duration, f *harness.Fault) {
	o.runs.WithLabelValues(outcome.String()).Inc()
	o.duration.Observe(d.Seconds())
	if f != nil {
		o.faults.WithLabelValues(FaultKind(f)).Inc()
	}
}

// FaultKind returns the label value of a fault.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, harness.ErrMultipleHigh):
		return "multiple_high"
	case errors.Is(err, harness.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, harness.ErrRepeatedEdge):
		return "repeated_edge"
	case errors.Is(err, harness.ErrSequenceTimeout):
		return "sequence_timeout"
	case errors.Is(err, harness.ErrHoldTimeout):
		return "hold_timeout"
	default:
		return "other"
	}
}
