package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finsim"

// Collector groups the counters recorded by the recommendation pipeline.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	llmCalls       *prometheus.CounterVec
	llmRetries     prometheus.Counter
	rejections     *prometheus.CounterVec
	priceLookups   *prometheus.CounterVec
	trades         *prometheus.CounterVec
	recommendation *prometheus.HistogramVec
}

// New constructs a collector on its own registry.
func New() (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Text generation calls by outcome.",
		}, []string{"outcome"}),
		llmRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Text generation retries after a retryable failure.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidate_rejections_total",
			Help:      "Trade candidates dropped during validation, by reason.",
		}, []string{"reason"}),
		priceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookups_total",
			Help:      "Price lookups by the source that answered.",
		}, []string{"source"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_total",
			Help:      "Simulated trades recorded, by type.",
		}, []string{"type"}),
		recommendation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidates",
			Help:      "Number of candidates surviving validation per run.",
			Buckets:   []float64{0, 1, 2, 3},
		}, []string{"stage"}),
	}

	for _, col := range []prometheus.Collector{c.llmCalls, c.llmRetries, c.rejections, c.priceLookups, c.trades, c.recommendation} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) LLMCall(outcome string) {
	if c == nil {
		return
	}
	c.llmCalls.WithLabelValues(outcome).Inc()
}

func (c *Collector) LLMRetry() {
	if c == nil {
		return
	}
	c.llmRetries.Inc()
}

func (c *Collector) Rejection(reason string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *Collector) PriceLookup(source string) {
	if c == nil {
		return
	}
	c.priceLookups.WithLabelValues(source).Inc()
}

func (c *Collector) Trade(kind string) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(kind).Inc()
}

func (c *Collector) Candidates(stage string, n int) {
	if c == nil {
		return
	}
	c.recommendation.WithLabelValues(stage).Observe(float64(n))
}
