package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for rsrank
// ⭐ SSOT: 메트릭 정의는 여기서만. nil Registry 는 기록을 생략
type Registry struct {
	reg *prometheus.Registry

	// Pipeline stage metrics
	StepDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
	LastRun      prometheus.Gauge

	// Universe / ranking shape
	Tickers    *prometheus.GaugeVec
	Exclusions *prometheus.GaugeVec
	Faults     *prometheus.CounterVec

	// Data collection
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
	FetchErrors  *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

// New creates a registry with every rsrank metric and the Go runtime collectors
func New() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rsrank_step_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage", "result"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsrank_runs_total",
				Help: "Total ranking runs by result",
			},
			[]string{"result"},
		),

		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rsrank_last_run_timestamp_seconds",
				Help: "Unix time of the last successful ranking run",
			},
		),

		Tickers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rsrank_tickers",
				Help: "Ticker counts of the last run by state (total, admitted, scored, faulted, displayed)",
			},
			[]string{"state"},
		),

		Exclusions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rsrank_universe_exclusions",
				Help: "Tickers excluded by the universe filter in the last run, by reason",
			},
			[]string{"reason"},
		),

		Faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsrank_score_faults_total",
				Help: "Tickers dropped during scoring, by fault kind",
			},
			[]string{"kind"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsrank_cache_hits_total",
				Help: "Fetch cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsrank_cache_misses_total",
				Help: "Fetch cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsrank_fetch_errors_total",
				Help: "Market data fetch failures by source",
			},
			[]string{"source"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rsrank_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StepDuration,
		m.Runs,
		m.LastRun,
		m.Tickers,
		m.Exclusions,
		m.Faults,
		m.CacheHits,
		m.CacheMisses,
		m.FetchErrors,
		m.BreakerState,
	)

	return m
}

// Gatherer exposes the underlying registry (tests, custom exporters)
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StepTimer tracks execution time for pipeline stages
type StepTimer struct {
	metrics *Registry
	stage   string
	start   time.Time
}

// StartStepTimer begins timing a pipeline stage
func (m *Registry) StartStepTimer(stage string) *StepTimer {
	return &StepTimer{metrics: m, stage: stage, start: time.Now()}
}

// Stop completes the stage timing and records the metric
func (st *StepTimer) Stop(result string) time.Duration {
	duration := time.Since(st.start)
	if st.metrics != nil {
		st.metrics.StepDuration.WithLabelValues(st.stage, result).Observe(duration.Seconds())
	}
	return duration
}

// RecordRun records the outcome of a ranking run
func (m *Registry) RecordRun(result string, finished time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	if result == "success" {
		m.LastRun.Set(float64(finished.Unix()))
	}
}

// SetTickers sets the ticker count for one state
func (m *Registry) SetTickers(state string, n int) {
	if m == nil {
		return
	}
	m.Tickers.WithLabelValues(state).Set(float64(n))
}

// SetExclusions replaces the exclusion counts of the last run
func (m *Registry) SetExclusions(counts map[string]int) {
	if m == nil {
		return
	}
	m.Exclusions.Reset()
	for reason, n := range counts {
		m.Exclusions.WithLabelValues(reason).Set(float64(n))
	}
}

// RecordFault records a ticker dropped during scoring
func (m *Registry) RecordFault(kind string) {
	if m == nil {
		return
	}
	m.Faults.WithLabelValues(kind).Inc()
}

// RecordCacheHit records a cache hit for the specified cache type
func (m *Registry) RecordCacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the specified cache type
func (m *Registry) RecordCacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordFetchError records a failed fetch from a data source
func (m *Registry) RecordFetchError(source string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(source).Inc()
}

// SetBreakerState records a circuit breaker transition (0=closed, 1=half-open, 2=open)
func (m *Registry) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}
