package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for GuildForge.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Step metrics
	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	stepRetries   *prometheus.CounterVec

	// Remote API metrics
	remoteCalls        *prometheus.CounterVec
	remoteCallDuration *prometheus.HistogramVec
	rateLimitWaits     prometheus.Counter

	// Leveling metrics
	xpGrants        prometheus.Counter
	tierCrossings   prometheus.Counter
	reconciliations *prometheus.CounterVec

	// Panel metrics
	panelPublishes *prometheus.CounterVec

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of overhaul runs started",
			},
			[]string{"guild"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of overhaul runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of overhaul run execution in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		stepsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_executed_total",
				Help:      "Total number of plan steps executed",
			},
			[]string{"kind", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of step execution in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),
		stepRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_retries_total",
				Help:      "Total number of step retry attempts",
			},
			[]string{"kind"},
		),

		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total number of remote API calls",
			},
			[]string{"operation", "status"},
		),
		remoteCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of remote API calls in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		rateLimitWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_waits_total",
				Help:      "Total number of waits imposed by the shared rate limiter",
			},
		),

		xpGrants: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "xp_grants_total",
				Help:      "Total number of XP grants applied",
			},
		),
		tierCrossings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tier_crossings_total",
				Help:      "Total number of tier threshold crossings",
			},
		),
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of tier-role reconciliations",
			},
			[]string{"result"},
		),

		panelPublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panel_publishes_total",
				Help:      "Total number of panel publish operations",
			},
			[]string{"mode"},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Number of overhaul runs currently executing",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.runsStarted, m.runsCompleted, m.runDuration,
		m.stepsExecuted, m.stepDuration, m.stepRetries,
		m.remoteCalls, m.remoteCallDuration, m.rateLimitWaits,
		m.xpGrants, m.tierCrossings, m.reconciliations,
		m.panelPublishes, m.activeRuns,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RunStarted records the start of an overhaul run.
func (m *Metrics) RunStarted(guildID string) {
	if m.registry == nil {
		return
	}
	m.runsStarted.WithLabelValues(guildID).Inc()
	m.activeRuns.Inc()
}

// RunCompleted records the completion of an overhaul run.
func (m *Metrics) RunCompleted(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// StepExecuted records the terminal status of a step.
func (m *Metrics) StepExecuted(kind, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.stepsExecuted.WithLabelValues(kind, status).Inc()
	m.stepDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// StepRetried records a retry attempt for a step.
func (m *Metrics) StepRetried(kind string) {
	if m.registry == nil {
		return
	}
	m.stepRetries.WithLabelValues(kind).Inc()
}

// RemoteCall records a remote API call and its outcome.
func (m *Metrics) RemoteCall(operation, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.remoteCalls.WithLabelValues(operation, status).Inc()
	m.remoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RateLimitWait records a wait imposed by the shared limiter.
func (m *Metrics) RateLimitWait() {
	if m.registry == nil {
		return
	}
	m.rateLimitWaits.Inc()
}

// XPGranted records an applied XP grant.
func (m *Metrics) XPGranted() {
	if m.registry == nil {
		return
	}
	m.xpGrants.Inc()
}

// TierCrossed records a tier threshold crossing.
func (m *Metrics) TierCrossed() {
	if m.registry == nil {
		return
	}
	m.tierCrossings.Inc()
}

// Reconciliation records the result of a tier-role reconciliation.
func (m *Metrics) Reconciliation(result string) {
	if m.registry == nil {
		return
	}
	m.reconciliations.WithLabelValues(result).Inc()
}

// PanelPublished records a panel publish operation.
func (m *Metrics) PanelPublished(mode string) {
	if m.registry == nil {
		return
	}
	m.panelPublishes.WithLabelValues(mode).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
