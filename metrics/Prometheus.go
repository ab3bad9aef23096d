package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitat"

// Collectors holds the Prometheus collectors of a training or
// evaluation run. Each Collectors has its own registry so that several
// runs in one process do not conflict.
type Collectors struct {
	registry *prometheus.Registry

	UpdatesDone          prometheus.Gauge
	StepsDone            prometheus.Gauge
	PercentDone          prometheus.Gauge
	CheckpointsSaved     prometheus.Counter
	ResumeStatesSaved    prometheus.Counter
	CheckpointsEvaluated prometheus.Counter
	EvalSuccess          prometheus.Gauge
	Scalars              *prometheus.GaugeVec
}

// NewCollectors returns registered Collectors
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		UpdatesDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "updates_done",
			Help:      "Number of completed policy updates.",
		}),
		StepsDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "steps_done",
			Help:      "Number of environment steps taken.",
		}),
		PercentDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "percent_done",
			Help:      "Fraction of training completed.",
		}),
		CheckpointsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_saved_total",
			Help:      "Number of checkpoints written.",
		}),
		ResumeStatesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_states_saved_total",
			Help:      "Number of resume states written.",
		}),
		CheckpointsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_evaluated_total",
			Help:      "Number of checkpoints evaluated.",
		}),
		EvalSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "eval_success_rate",
			Help:      "Mean episode success of the last evaluated checkpoint.",
		}),
		Scalars: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scalar",
			Help:      "Last value written for each scalar tag.",
		}, []string{"tag"}),
	}

	c.registry.MustRegister(
		c.UpdatesDone,
		c.StepsDone,
		c.PercentDone,
		c.CheckpointsSaved,
		c.ResumeStatesSaved,
		c.CheckpointsEvaluated,
		c.EvalSuccess,
		c.Scalars,
	)
	return c
}

// Registry returns the registry the collectors are registered with
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler serving the collectors in the
// Prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// PromWriter exports the latest value of each scalar as a gauge
type PromWriter struct {
	scalars *prometheus.GaugeVec
}

// NewPromWriter returns a PromWriter exporting to c
func NewPromWriter(c *Collectors) *PromWriter {
	return &PromWriter{c.Scalars}
}

// AddScalar implements the Writer interface
func (p *PromWriter) AddScalar(tag string, value float64, _ int64) {
	p.scalars.WithLabelValues(tag).Set(value)
}

// Close implements the Writer interface
func (p *PromWriter) Close() error { return nil }
