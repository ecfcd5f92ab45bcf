package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups   *prometheus.CounterVec
	generations    *prometheus.CounterVec
	generationTime prometheus.Histogram
	remoteWrites   *prometheus.CounterVec
	warmItems      *prometheus.CounterVec
	analyses       *prometheus.CounterVec
	analysisTime   *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	llmCost        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_cache_lookups_total",
				Help: "Speech requests by the tier that answered them.",
			},
			[]string{"tier"}, // local, remote, generated
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_generations_total",
				Help: "Speech synthesis calls by outcome.",
			},
			[]string{"status"},
		),
		generationTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tts_generation_seconds",
				Help:    "Speech synthesis latency.",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
		),
		remoteWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_remote_writes_total",
				Help: "Writes to the remote audio tier by outcome.",
			},
			[]string{"status"},
		),
		warmItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_warm_items_total",
				Help: "Pre-warmed items by outcome.",
			},
			[]string{"status"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_analysis_total",
				Help: "Interview analysis calls by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		analysisTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interview_analysis_seconds",
				Help:    "Interview analysis latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		llmTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_llm_tokens_total",
				Help: "Tokens spent on interview analysis.",
			},
			[]string{"provider", "direction"}, // input, output
		),
		llmCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_llm_cost_usd_total",
				Help: "Estimated spend on interview analysis in USD.",
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheLookups,
		m.generations,
		m.generationTime,
		m.remoteWrites,
		m.warmItems,
		m.analyses,
		m.analysisTime,
		m.llmTokens,
		m.llmCost,
	)
	return m
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

// CacheLookup counts a request answered by tier.
func (m *Metrics) CacheLookup(tier string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier).Inc()
}

func (m *Metrics) Generation(ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(status(ok)).Inc()
	m.generationTime.Observe(elapsed.Seconds())
}

func (m *Metrics) RemoteWrite(ok bool) {
	if m == nil {
		return
	}
	m.remoteWrites.WithLabelValues(status(ok)).Inc()
}

func (m *Metrics) WarmItem(ok bool) {
	if m == nil {
		return
	}
	m.warmItems.WithLabelValues(status(ok)).Inc()
}

// Analysis records one interview analysis call of the given kind.
func (m *Metrics) Analysis(kind string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind, status(ok)).Inc()
	m.analysisTime.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) LLMUsage(provider string, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	m.llmTokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
	m.llmCost.WithLabelValues(provider).Add(costUSD)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
