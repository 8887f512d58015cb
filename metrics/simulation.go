package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimulationMetrics 模拟运行相关指标.
type SimulationMetrics struct {
	RunsTotal      *prometheus.CounterVec   // 维度: variant, status
	RunDuration    *prometheus.HistogramVec // 维度: variant
	StageDuration  *prometheus.HistogramVec // 维度: stage
	PathsSimulated prometheus.Counter
	DefaultRate    *prometheus.GaugeVec   // 维度: variant, 最近一次运行
	IRRClamped     *prometheus.CounterVec // 维度: bound (lower/upper)
}

var simBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

func newSimulationMetrics(m *Metrics) *SimulationMetrics {
	paths := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creditpool_paths_simulated_total",
		Help: "Monte Carlo paths simulated across all runs",
	})
	m.registry.MustRegister(paths)

	return &SimulationMetrics{
		RunsTotal: m.NewCounterVec(prometheus.CounterOpts{
			Name: "creditpool_runs_total",
			Help: "Simulation runs by variant and outcome",
		}, []string{"variant", "status"}),
		RunDuration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditpool_run_duration_seconds",
			Help:    "End-to-end simulation run latency",
			Buckets: simBuckets,
		}, []string{"variant"}),
		StageDuration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditpool_stage_duration_seconds",
			Help:    "Latency of individual engine stages",
			Buckets: simBuckets,
		}, []string{"stage"}),
		PathsSimulated: paths,
		DefaultRate: m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creditpool_default_rate",
			Help: "Aggregate default rate of the most recent run",
		}, []string{"variant"}),
		IRRClamped: m.NewCounterVec(prometheus.CounterOpts{
			Name: "creditpool_irr_clamped_total",
			Help: "Paths whose IRR ended on a clamp bound",
		}, []string{"bound"}),
	}
}

// ObserveStage 记录阶段耗时. 接收者为 nil 时不做任何事.
func (s *SimulationMetrics) ObserveStage(stage string, d time.Duration) {
	if s == nil {
		return
	}
	s.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun 记录一次运行的结果.
func (s *SimulationMetrics) ObserveRun(variant string, paths int, d time.Duration, err error) {
	if s == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.RunsTotal.WithLabelValues(variant, status).Inc()
	s.RunDuration.WithLabelValues(variant).Observe(d.Seconds())
	if err == nil {
		s.PathsSimulated.Add(float64(paths))
	}
}

// ObserveOutcome 记录运行的违约率与 IRR 钳制数量.
func (s *SimulationMetrics) ObserveOutcome(variant string, defaultRate float64, clampedLower, clampedUpper int) {
	if s == nil {
		return
	}
	s.DefaultRate.WithLabelValues(variant).Set(defaultRate)
	if clampedLower > 0 {
		s.IRRClamped.WithLabelValues("lower").Add(float64(clampedLower))
	}
	if clampedUpper > 0 {
		s.IRRClamped.WithLabelValues("upper").Add(float64(clampedUpper))
	}
}
