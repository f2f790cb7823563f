// Package backtest replays strategy signals against historical prices
// and derives performance metrics for the run.
package backtest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/fills"
	"github.com/trogers1052/quant-sim/internal/models"
	"github.com/trogers1052/quant-sim/internal/strategy"
)

// Skip reason constants, machine-readable in the result.
const (
	ReasonNoData           = "no_data"
	ReasonDataInsufficient = "data_insufficient"
	ReasonStrategyFailed   = "strategy_failed"
)

// SeriesSource supplies historical price series when the caller does
// not pass data directly.
type SeriesSource interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// Request describes one backtest run. Either Data or Fetcher must
// yield a series per symbol; symbols with neither are skipped.
type Request struct {
	Strategy  strategy.Strategy
	Symbols   []string
	Start     time.Time
	End       time.Time
	Data      map[string][]models.PriceBar
	Fetcher   SeriesSource
	Benchmark []models.PriceBar
}

// SkippedSymbol records a symbol excluded from the run and why.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// SkippedSignal records a signal the engine dropped and why.
type SkippedSignal struct {
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Result is the complete outcome of a run. A run with no usable data
// still returns a Result with DataUnavailable set and flat metrics.
type Result struct {
	StrategyName    string                     `json:"strategy_name"`
	Symbols         []string                   `json:"symbols"`
	Start           time.Time                  `json:"start"`
	End             time.Time                  `json:"end"`
	InitialCapital  decimal.Decimal            `json:"initial_capital"`
	FinalCash       decimal.Decimal            `json:"final_cash"`
	Trades          []models.Trade             `json:"trades"`
	Snapshots       []models.PortfolioSnapshot `json:"snapshots"`
	DailyReturns    []float64                  `json:"daily_returns"`
	Metrics         models.PerformanceMetrics  `json:"metrics"`
	SkippedSymbols  []SkippedSymbol            `json:"skipped_symbols,omitempty"`
	SkippedSignals  []SkippedSignal            `json:"skipped_signals,omitempty"`
	DataUnavailable bool                       `json:"data_unavailable"`
}

// minBars is the shortest series a strategy is given; anything below
// is treated as insufficient data for the symbol.
const minBars = 2

// Engine replays chronologically ordered signals against an internal
// ledger. Single-threaded and deterministic: identical inputs always
// reproduce the same trade sequence and metrics.
type Engine struct {
	initialCapital decimal.Decimal
	params         fills.Params
	riskFreeRate   float64
}

// New creates a backtest engine from the trading configuration.
func New(cfg config.TradingConfig) *Engine {
	return &Engine{
		initialCapital: decimal.NewFromFloat(cfg.InitialCapital),
		params:         fills.NewParams(cfg.CommissionRate, cfg.StampTaxRate, cfg.MinTradeUnit),
		riskFreeRate:   cfg.RiskFreeRate,
	}
}

// Run executes one full historical pass. Per-symbol data and signal
// failures are recorded and skipped, never fatal; only a malformed
// request returns an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Strategy == nil {
		return nil, fmt.Errorf("backtest request requires a strategy")
	}
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("backtest request requires at least one symbol")
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("backtest end %s precedes start %s",
			req.End.Format(time.DateOnly), req.Start.Format(time.DateOnly))
	}

	result := &Result{
		StrategyName:   req.Strategy.Name(),
		Symbols:        req.Symbols,
		Start:          req.Start,
		End:            req.End,
		InitialCapital: e.initialCapital,
	}

	log.Printf("Starting backtest: strategy=%s symbols=%v period=%s..%s",
		req.Strategy.Name(), req.Symbols,
		req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))

	// Collect series and signals per symbol into one pool.
	series := make(map[string][]models.PriceBar)
	var pool []models.Signal
	for _, symbol := range req.Symbols {
		bars, reason := e.loadSeries(ctx, req, symbol)
		if reason != "" {
			result.SkippedSymbols = append(result.SkippedSymbols, SkippedSymbol{Symbol: symbol, Reason: reason})
			continue
		}
		series[symbol] = bars

		signals, err := req.Strategy.GenerateSignals(bars, symbol)
		if err != nil {
			log.Printf("Strategy failed for %s: %v", symbol, err)
			result.SkippedSymbols = append(result.SkippedSymbols, SkippedSymbol{Symbol: symbol, Reason: ReasonStrategyFailed})
			delete(series, symbol)
			continue
		}
		log.Printf("%s: %d signals generated", symbol, len(signals))
		pool = append(pool, signals...)
	}

	if len(series) == 0 {
		// Every symbol was skipped. Batch jobs over many combinations
		// must not abort on one bad universe, so this completes with a
		// flagged empty result.
		log.Printf("Backtest has no usable data for any symbol")
		result.DataUnavailable = true
		result.FinalCash = e.initialCapital
		return result, nil
	}

	// Global chronological order, symbol as the deterministic tie-break.
	// One capital pool funds trades across all symbols in sequence.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Timestamp.Equal(pool[j].Timestamp) {
			return pool[i].Symbol < pool[j].Symbol
		}
		return pool[i].Timestamp.Before(pool[j].Timestamp)
	})

	led := newLedger(e.initialCapital, e.params)
	for _, sig := range pool {
		led.execute(sig)
	}
	result.Trades = led.trades
	result.SkippedSignals = led.skipped
	result.FinalCash = led.cash

	// Daily valuation re-derives positions from the trade log rather
	// than reusing the final ledger: the report needs a value for
	// every day in range, not only trade days.
	result.Snapshots, result.DailyReturns = e.markToMarket(result.Trades, series, req.Start, req.End)

	result.Metrics = ComputeMetrics(result.Snapshots, result.DailyReturns, result.Trades, req.Benchmark, e.riskFreeRate)

	log.Printf("Backtest complete: %d trades, total return %.2f%%",
		len(result.Trades), result.Metrics.TotalReturn*100)
	return result, nil
}

func (e *Engine) loadSeries(ctx context.Context, req Request, symbol string) ([]models.PriceBar, string) {
	var bars []models.PriceBar
	if req.Data != nil {
		bars = req.Data[symbol]
	}
	if len(bars) == 0 && req.Fetcher != nil {
		fetched, err := req.Fetcher.GetSeries(ctx, symbol, req.Start, req.End)
		if err != nil {
			log.Printf("Failed to fetch series for %s: %v", symbol, err)
			return nil, ReasonNoData
		}
		bars = fetched
	}
	if len(bars) == 0 {
		return nil, ReasonNoData
	}
	if len(bars) < minBars {
		return nil, ReasonDataInsufficient
	}
	return bars, ""
}

// markToMarket replays the trade log day by day, valuing open
// positions at each day's close. Days where a symbol has no bar carry
// its last known close forward.
func (e *Engine) markToMarket(trades []models.Trade, series map[string][]models.PriceBar, start, end time.Time) ([]models.PortfolioSnapshot, []float64) {
	days := tradingDays(series, start, end)
	if len(days) == 0 {
		return nil, nil
	}

	closes := make(map[string]map[string]decimal.Decimal, len(series))
	for symbol, bars := range series {
		byDay := make(map[string]decimal.Decimal, len(bars))
		for _, b := range bars {
			byDay[dayKey(b.Date)] = b.Close
		}
		closes[symbol] = byDay
	}

	cash := e.initialCapital
	shares := make(map[string]int64)
	lastClose := make(map[string]decimal.Decimal)

	tradesByDay := make(map[string][]models.Trade)
	for _, t := range trades {
		k := dayKey(t.ExecutedAt)
		tradesByDay[k] = append(tradesByDay[k], t)
	}

	snapshots := make([]models.PortfolioSnapshot, 0, len(days))
	returns := make([]float64, 0, len(days))
	prevValue := e.initialCapital

	for _, day := range days {
		k := dayKey(day)
		for _, t := range tradesByDay[k] {
			if t.Side == models.TradeTypeBuy {
				shares[t.Symbol] += t.Quantity
			} else {
				shares[t.Symbol] -= t.Quantity
			}
			cash = cash.Add(t.NetCashflow())
		}

		marketValue := decimal.Zero
		count := 0
		for symbol, qty := range shares {
			if qty <= 0 {
				continue
			}
			price, ok := closes[symbol][k]
			if ok {
				lastClose[symbol] = price
			} else {
				price = lastClose[symbol]
			}
			marketValue = marketValue.Add(price.Mul(decimal.NewFromInt(qty)))
			count++
		}

		totalValue := cash.Add(marketValue)
		pnl := totalValue.Sub(e.initialCapital)
		pnlPct, _ := pnl.Div(e.initialCapital).Float64()

		snapshots = append(snapshots, models.PortfolioSnapshot{
			Date:          day,
			TotalValue:    totalValue,
			Cash:          cash,
			MarketValue:   marketValue,
			TotalPnl:      pnl,
			TotalPnlPct:   pnlPct,
			PositionCount: count,
		})

		ret, _ := totalValue.Sub(prevValue).Div(prevValue).Float64()
		returns = append(returns, ret)
		prevValue = totalValue
	}
	return snapshots, returns
}

// tradingDays returns the sorted union of bar dates across all loaded
// symbols, restricted to the requested range.
func tradingDays(series map[string][]models.PriceBar, start, end time.Time) []time.Time {
	seen := make(map[string]time.Time)
	for _, bars := range series {
		for _, b := range bars {
			if b.Date.Before(start) || b.Date.After(end) {
				continue
			}
			seen[dayKey(b.Date)] = b.Date
		}
	}
	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
