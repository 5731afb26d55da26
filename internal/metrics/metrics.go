package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures settlement pipeline health signals.
type Metrics struct {
	settlementRuns      *prometheus.CounterVec
	settlementDuration  *prometheus.HistogramVec
	transfersDispatched *prometheus.CounterVec
	commissionMutations *prometheus.CounterVec
	outboxDeliveries    *prometheus.CounterVec
	retriesScheduled    prometheus.Counter
}

// Config carries the const labels stamped onto every series.
type Config struct {
	ServiceName string
	Environment string
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry.
func Default() *Metrics {
	return WithConfig(Config{})
}

// WithConfig returns the singleton metrics registry using config labels.
func WithConfig(cfg Config) *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return metrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "partnerpay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	settlementRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerpay_settlement_runs_total",
		Help:        "Settlement dispatch runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	settlementDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "partnerpay_settlement_duration_seconds",
		Help:        "Settlement dispatch latency per invoice.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"outcome"})
	transfersDispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerpay_transfers_dispatched_total",
		Help:        "Payout transfers dispatched by rail and result.",
		ConstLabels: constLabels,
	}, []string{"rail", "result"})
	commissionMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerpay_commission_mutations_total",
		Help:        "Commission mutations by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	outboxDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerpay_outbox_deliveries_total",
		Help:        "Outbox message deliveries by type and result.",
		ConstLabels: constLabels,
	}, []string{"type", "result"})
	retriesScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "partnerpay_settlement_retries_scheduled_total",
		Help:        "Settlement retries scheduled after rail failures.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		settlementRuns,
		settlementDuration,
		transfersDispatched,
		commissionMutations,
		outboxDeliveries,
		retriesScheduled,
	)

	return &Metrics{
		settlementRuns:      settlementRuns,
		settlementDuration:  settlementDuration,
		transfersDispatched: transfersDispatched,
		commissionMutations: commissionMutations,
		outboxDeliveries:    outboxDeliveries,
		retriesScheduled:    retriesScheduled,
	}
}

// ObserveSettlementRun records one dispatch attempt and its latency.
func (m *Metrics) ObserveSettlementRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.settlementRuns.WithLabelValues(outcome).Inc()
	m.settlementDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncTransferDispatched counts a per-payout rail result.
func (m *Metrics) IncTransferDispatched(rail, result string) {
	if m == nil {
		return
	}
	m.transfersDispatched.WithLabelValues(rail, result).Inc()
}

// IncCommissionMutation counts a ledger mutation outcome.
func (m *Metrics) IncCommissionMutation(outcome string) {
	if m == nil {
		return
	}
	m.commissionMutations.WithLabelValues(outcome).Inc()
}

// IncOutboxDelivery counts one handler invocation by message type.
func (m *Metrics) IncOutboxDelivery(msgType, result string) {
	if m == nil {
		return
	}
	m.outboxDeliveries.WithLabelValues(msgType, result).Inc()
}

// IncRetryScheduled counts a settlement retry row insert.
func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.retriesScheduled.Inc()
}
