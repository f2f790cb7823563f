package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot represents a point-in-time valuation of the
// portfolio: one per trading day in a backtest, one per polling
// interval on the live path.
type PortfolioSnapshot struct {
	ID            int             `json:"id,omitempty"`
	Date          time.Time       `json:"date"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Cash          decimal.Decimal `json:"cash"`
	MarketValue   decimal.Decimal `json:"market_value"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
	TotalPnlPct   float64         `json:"total_pnl_pct"`
	PositionCount int             `json:"position_count"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
}

// PerformanceMetrics holds the derived statistics of a completed run.
// A pure function of the snapshot series and trade records; computing
// it twice on the same history yields identical results.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitLossRatio  float64 `json:"profit_loss_ratio"`
	TotalTrades      int     `json:"total_trades"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	Alpha            float64 `json:"alpha"`
	FinalValue       float64 `json:"final_value"`
}
