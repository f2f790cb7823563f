// Package metrics exposes Prometheus counters for the live engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignalsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_generated_total",
			Help: "Total number of combined signals generated",
		},
		[]string{"symbol", "side"},
	)

	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_executed_total",
			Help: "Total number of fills executed against the live ledger",
		},
		[]string{"symbol", "side"},
	)

	RiskLiquidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_liquidations_total",
			Help: "Total number of stop-loss and take-profit liquidations",
		},
		[]string{"symbol", "reason"},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "trading_loop_poll_duration_seconds",
			Help: "Duration of one live trading loop iteration",
		},
	)
)
