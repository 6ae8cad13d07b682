package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records orchestrator activity.
type MarketplaceMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	feePool    prometheus.Gauge
	custody    *prometheus.CounterVec
}

var (
	marketplaceOnce     sync.Once
	marketplaceRegistry *MarketplaceMetrics
)

// Marketplace returns the lazily-initialised marketplace metrics registered on
// the default Prometheus registerer.
func Marketplace() *MarketplaceMetrics {
	marketplaceOnce.Do(func() {
		marketplaceRegistry = NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	})
	return marketplaceRegistry
}

// NewMarketplaceMetrics builds the collectors and registers them on reg.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	m := &MarketplaceMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "music",
			Subsystem: "orchestrator",
			Name:      "operations_total",
			Help:      "Orchestrator entry points segmented by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "music",
			Subsystem: "orchestrator",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for orchestrator entry points.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		feePool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "music",
			Subsystem: "orchestrator",
			Name:      "fee_pool",
			Help:      "Collected fees held by the orchestrator, in base units.",
		}),
		custody: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "music",
			Subsystem: "orchestrator",
			Name:      "custody_movements_total",
			Help:      "Stablecoin moved into or out of orchestrator custody, in base units.",
		}, []string{"direction"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.feePool, m.custody)
	}
	return m
}

// ObserveOperation records the outcome and latency of an entry point.
func (m *MarketplaceMetrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetFeePool publishes the current fee pool.
func (m *MarketplaceMetrics) SetFeePool(amount *uint256.Int) {
	if m == nil {
		return
	}
	m.feePool.Set(toFloat(amount))
}

// ObserveCustody adds a committed custody movement.
func (m *MarketplaceMetrics) ObserveCustody(direction string, amount *uint256.Int) {
	if m == nil || amount == nil || amount.IsZero() {
		return
	}
	m.custody.WithLabelValues(strings.TrimSpace(direction)).Add(toFloat(amount))
}

func toFloat(amount *uint256.Int) float64 {
	if amount == nil {
		return 0
	}
	if amount.IsUint64() {
		return float64(amount.Uint64())
	}
	f, _ := new(big.Float).SetInt(amount.ToBig()).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}
