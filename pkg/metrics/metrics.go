package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's prometheus collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ledgerOpsTotal      *prometheus.CounterVec
	ledgerCoinsTotal    *prometheus.CounterVec
	redemptionsTotal    *prometheus.CounterVec
	rewardsWrittenTotal *prometheus.CounterVec
	cacheLookupsTotal   *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ledgerOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger credits and debits by outcome",
			},
			[]string{"type", "source", "outcome"},
		),
		ledgerCoinsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_coins_total",
				Help: "Coins moved by applied ledger operations",
			},
			[]string{"type"},
		),
		redemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redemptions_total",
				Help: "Redeem code attempts by outcome",
			},
			[]string{"outcome"},
		),
		rewardsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewards_written_total",
				Help: "Rewards written by dispatch target",
			},
			[]string{"target", "type"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "Cache lookups by result",
			},
			[]string{"cache", "result"},
		),
	}
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func (c *Collector) LedgerOp(txType, source, outcome string, coins int64) {
	if c == nil {
		return
	}
	c.ledgerOpsTotal.WithLabelValues(txType, source, outcome).Inc()
	if outcome == "applied" {
		c.ledgerCoinsTotal.WithLabelValues(txType).Add(float64(coins))
	}
}

func (c *Collector) Redemption(outcome string) {
	if c == nil {
		return
	}
	c.redemptionsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RewardsWritten(target, rewardType string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rewardsWrittenTotal.WithLabelValues(target, rewardType).Add(float64(n))
}

func (c *Collector) CacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}
