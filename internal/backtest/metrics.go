package backtest

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/models"
)

// tradingDaysPerYear is the annualization base for returns and
// volatility.
const tradingDaysPerYear = 252

// ComputeMetrics derives performance statistics from a completed run.
// A pure function of its inputs: calling it twice on the same history
// yields identical results.
func ComputeMetrics(snapshots []models.PortfolioSnapshot, dailyReturns []float64, trades []models.Trade, benchmark []models.PriceBar, riskFreeRate float64) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	if len(snapshots) == 0 {
		return m
	}

	initial := snapshots[0].TotalValue.Sub(snapshots[0].TotalPnl)
	final := snapshots[len(snapshots)-1].TotalValue
	m.FinalValue, _ = final.Float64()

	totalReturn, _ := final.Sub(initial).Div(initial).Float64()
	m.TotalReturn = totalReturn

	days := float64(len(snapshots))
	m.AnnualizedReturn = math.Pow(1+totalReturn, tradingDaysPerYear/days) - 1

	m.Volatility = sampleStdDev(dailyReturns) * math.Sqrt(tradingDaysPerYear)
	if m.Volatility > 0 {
		m.SharpeRatio = (m.AnnualizedReturn - riskFreeRate) / m.Volatility
	}

	m.MaxDrawdown = maxDrawdown(snapshots)

	m.TotalTrades = len(trades)
	m.WinRate, m.ProfitLossRatio = tradeStats(trades)

	if len(benchmark) > 1 {
		first, _ := benchmark[0].Close.Float64()
		last, _ := benchmark[len(benchmark)-1].Close.Float64()
		if first > 0 {
			m.BenchmarkReturn = (last - first) / first
		}
		m.Alpha = m.TotalReturn - m.BenchmarkReturn
	}

	return m
}

// sampleStdDev returns the sample standard deviation (n-1 divisor).
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// maxDrawdown returns the most negative decline from the running peak
// of the snapshot series.
func maxDrawdown(snapshots []models.PortfolioSnapshot) float64 {
	peak := decimal.Zero
	worst := 0.0
	for _, s := range snapshots {
		if s.TotalValue.GreaterThan(peak) {
			peak = s.TotalValue
		}
		if peak.Sign() <= 0 {
			continue
		}
		dd, _ := s.TotalValue.Sub(peak).Div(peak).Float64()
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// tradeStats computes win rate and the average win to average loss
// ratio over trades carrying a realized profit/loss (sells only).
func tradeStats(trades []models.Trade) (winRate, plRatio float64) {
	var wins, losses, closed int
	winSum := decimal.Zero
	lossSum := decimal.Zero

	for _, t := range trades {
		if t.ProfitLoss == nil {
			continue
		}
		closed++
		switch t.ProfitLoss.Sign() {
		case 1:
			wins++
			winSum = winSum.Add(*t.ProfitLoss)
		case -1:
			losses++
			lossSum = lossSum.Add(t.ProfitLoss.Abs())
		}
	}

	if closed == 0 {
		return 0, 0
	}
	winRate = float64(wins) / float64(closed)

	if wins > 0 && losses > 0 {
		avgWin, _ := winSum.Div(decimal.NewFromInt(int64(wins))).Float64()
		avgLoss, _ := lossSum.Div(decimal.NewFromInt(int64(losses))).Float64()
		if avgLoss > 0 {
			plRatio = avgWin / avgLoss
		}
	}
	return winRate, plRatio
}
