package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StakeVault Metrics Collector
// Provides comprehensive metrics for monitoring

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all StakeVault metrics
type Collector struct {
	// Deposit metrics
	DepositsTotal  prometheus.Counter
	DepositVolume  prometheus.Counter
	SharesMinted   prometheus.Counter
	DepositsFailed *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalRequestsTotal prometheus.Counter
	ClaimsTotal             *prometheus.CounterVec
	ClaimVolume             prometheus.Counter
	SharesBurned            prometheus.Counter

	// Fee metrics
	FeesCollected *prometheus.CounterVec

	// Reward metrics
	RewardsTotal  prometheus.Counter
	RewardVolume  prometheus.Counter
	RewardsFailed prometheus.Counter

	// Pool metrics
	PoolBalance prometheus.Gauge
	TotalShares prometheus.Gauge

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec
	WSSubscriptions     *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	APIErrorsTotal    *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	// Deposit metrics
	c.DepositsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "deposits",
			Name:      "total",
			Help:      "Total number of accepted deposits",
		},
	)

	c.DepositVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "deposits",
			Name:      "volume",
			Help:      "Total deposited volume in base units",
		},
	)

	c.SharesMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "deposits",
			Name:      "shares_minted",
			Help:      "Total shares minted",
		},
	)

	c.DepositsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "deposits",
			Name:      "failed_total",
			Help:      "Total rejected deposits",
		},
		[]string{"reason"},
	)

	// Withdrawal metrics
	c.WithdrawalRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "withdrawals",
			Name:      "requests_total",
			Help:      "Total withdrawal requests opened",
		},
	)

	c.ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "withdrawals",
			Name:      "claims_total",
			Help:      "Total settled claims by fee tier",
		},
		[]string{"tier"},
	)

	c.ClaimVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "withdrawals",
			Name:      "claim_volume",
			Help:      "Total gross claim volume in base units",
		},
	)

	c.SharesBurned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "withdrawals",
			Name:      "shares_burned",
			Help:      "Total shares retired by claims",
		},
	)

	// Fee metrics
	c.FeesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "fees",
			Name:      "collected",
			Help:      "Total fees collected in base units by tier",
		},
		[]string{"tier"},
	)

	// Reward metrics
	c.RewardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "rewards",
			Name:      "total",
			Help:      "Total reward injections",
		},
	)

	c.RewardVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "rewards",
			Name:      "volume",
			Help:      "Total reward volume in base units",
		},
	)

	c.RewardsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "rewards",
			Name:      "failed_total",
			Help:      "Total rejected reward injections",
		},
	)

	// Pool metrics
	c.PoolBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stakevault",
			Subsystem: "pool",
			Name:      "balance",
			Help:      "Current pool balance in base units",
		},
	)

	c.TotalShares = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stakevault",
			Subsystem: "pool",
			Name:      "total_shares",
			Help:      "Current shares outstanding",
		},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stakevault",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"channel"},
	)

	c.WSSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stakevault",
			Subsystem: "websocket",
			Name:      "subscriptions",
			Help:      "Number of active subscriptions per channel",
		},
		[]string{"channel"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stakevault",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakevault",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total API errors",
		},
		[]string{"method", "path", "error_type"},
	)

	// Register all metrics
	c.registerAll()

	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	// Deposit metrics
	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.DepositVolume)
	prometheus.MustRegister(c.SharesMinted)
	prometheus.MustRegister(c.DepositsFailed)

	// Withdrawal metrics
	prometheus.MustRegister(c.WithdrawalRequestsTotal)
	prometheus.MustRegister(c.ClaimsTotal)
	prometheus.MustRegister(c.ClaimVolume)
	prometheus.MustRegister(c.SharesBurned)

	// Fee metrics
	prometheus.MustRegister(c.FeesCollected)

	// Reward metrics
	prometheus.MustRegister(c.RewardsTotal)
	prometheus.MustRegister(c.RewardVolume)
	prometheus.MustRegister(c.RewardsFailed)

	// Pool metrics
	prometheus.MustRegister(c.PoolBalance)
	prometheus.MustRegister(c.TotalShares)

	// WebSocket metrics
	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
	prometheus.MustRegister(c.WSSubscriptions)

	// API metrics
	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.APIErrorsTotal)
}

// ============ Recording Helpers ============

// RecordDeposit records an accepted deposit
func (c *Collector) RecordDeposit(amount, sharesMinted float64) {
	c.DepositsTotal.Inc()
	c.DepositVolume.Add(amount)
	c.SharesMinted.Add(sharesMinted)
}

// RecordDepositFailure records a rejected deposit
func (c *Collector) RecordDepositFailure(reason string) {
	c.DepositsFailed.WithLabelValues(reason).Inc()
}

// RecordWithdrawalRequest records an opened withdrawal request
func (c *Collector) RecordWithdrawalRequest() {
	c.WithdrawalRequestsTotal.Inc()
}

// RecordClaim records a settled claim
func (c *Collector) RecordClaim(tier string, gross, fee, sharesBurned float64) {
	c.ClaimsTotal.WithLabelValues(tier).Inc()
	c.ClaimVolume.Add(gross)
	c.SharesBurned.Add(sharesBurned)
	if fee > 0 {
		c.FeesCollected.WithLabelValues(tier).Add(fee)
	}
}

// RecordReward records a reward injection
func (c *Collector) RecordReward(amount float64) {
	c.RewardsTotal.Inc()
	c.RewardVolume.Add(amount)
}

// RecordRewardFailure records a rejected reward injection
func (c *Collector) RecordRewardFailure() {
	c.RewardsFailed.Inc()
}

// UpdatePoolMetrics updates the pool gauges
func (c *Collector) UpdatePoolMetrics(poolBalance, totalShares float64) {
	c.PoolBalance.Set(poolBalance)
	c.TotalShares.Set(totalShares)
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordAPIError records an API error
func (c *Collector) RecordAPIError(method, path, errorType string) {
	c.APIErrorsTotal.WithLabelValues(method, path, errorType).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
