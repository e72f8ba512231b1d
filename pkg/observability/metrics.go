package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ctxvars"

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	Resolutions       *prometheus.CounterVec
	Suppressions      *prometheus.CounterVec
	TriggersSatisfied *prometheus.CounterVec
	Flips             *prometheus.CounterVec
	MalformedEvents   prometheus.Counter
	BootstrapDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Variables resolved at bootstrap, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		Suppressions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suppressions_total",
				Help:      "Variables removed by the production gate, by source and phase",
			},
			[]string{"source", "phase"},
		),
		TriggersSatisfied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_satisfied_total",
				Help:      "Derived triggers marked satisfied",
			},
			[]string{"variable"},
		),
		Flips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flips_total",
				Help:      "Derived variables flipped from their default",
			},
			[]string{"variable"},
		),
		MalformedEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "malformed_events_total",
				Help:      "Events skipped for missing sender or text",
			},
		),
		BootstrapDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bootstrap_duration_seconds",
				Help:      "Duration of session bootstrap",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		m.Resolutions,
		m.Suppressions,
		m.TriggersSatisfied,
		m.Flips,
		m.MalformedEvents,
		m.BootstrapDuration,
	)
	return m
}

// Registry returns the registry holding the engine collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records every lifecycle event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolved: func(_ context.Context, e *domain.ResolutionEvent) {
			m.Resolutions.WithLabelValues(string(e.Kind), e.Outcome).Inc()
		},
		OnSuppressed: func(_ context.Context, e *domain.SuppressionEvent) {
			m.Suppressions.WithLabelValues(string(e.Kind), e.Phase).Inc()
		},
		OnTriggerSatisfied: func(_ context.Context, e *domain.TriggerEvent) {
			m.TriggersSatisfied.WithLabelValues(e.Variable).Inc()
		},
		OnFlip: func(_ context.Context, e *domain.TriggerEvent) {
			m.Flips.WithLabelValues(e.Variable).Inc()
		},
		OnMalformedEvent: func(context.Context, error) {
			m.MalformedEvents.Inc()
		},
		OnBootstrap: func(_ context.Context, d time.Duration, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.BootstrapDuration.WithLabelValues(result).Observe(d.Seconds())
		},
	}
}
