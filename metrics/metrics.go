package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for scheduling and tournament fill
// work against one explicit registry, so tests can run with their own
// registry instead of the process-global one.
type Metrics struct {
	registry *prometheus.Registry

	ScheduleRegenerations *prometheus.CounterVec
	ScheduleFixtures      *prometheus.CounterVec
	ScheduleDuration      prometheus.Histogram

	AutoFillRuns         *prometheus.CounterVec
	AutoFillPlaceholders prometheus.Counter
	SweepBatchSize       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ScheduleRegenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_schedule_regenerations_total",
			Help: "Schedule regeneration attempts by competition type and outcome.",
		}, []string{"competition_type", "outcome"}),

		ScheduleFixtures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_schedule_fixtures_written_total",
			Help: "Fixtures written by schedule regenerations.",
		}, []string{"competition_type"}),

		ScheduleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchday_schedule_generation_seconds",
			Help:    "Wall time of schedule regeneration including persistence.",
			Buckets: prometheus.DefBuckets,
		}),

		AutoFillRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_autofill_runs_total",
			Help: "Tournament auto-fill attempts by outcome.",
		}, []string{"outcome"}),

		AutoFillPlaceholders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_autofill_placeholders_total",
			Help: "Placeholder entries created by auto-fill.",
		}),

		SweepBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchday_sweep_tournaments_due",
			Help: "Tournaments past deadline found by the last sweep.",
		}),
	}

	m.registry.MustRegister(
		m.ScheduleRegenerations,
		m.ScheduleFixtures,
		m.ScheduleDuration,
		m.AutoFillRuns,
		m.AutoFillPlaceholders,
		m.SweepBatchSize,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
