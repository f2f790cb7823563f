// Package live runs the simulated real-time trading loop: poll
// current prices, generate combined signals, size and execute fills,
// enforce risk controls, and persist snapshots.
package live

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/combiner"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/fills"
	"github.com/trogers1052/quant-sim/internal/metrics"
	"github.com/trogers1052/quant-sim/internal/models"
	"github.com/trogers1052/quant-sim/internal/portfolio"
	"github.com/trogers1052/quant-sim/internal/strategy"
)

// historyDays is how much price history each strategy sees per poll.
const historyDays = 200

// Store is the persistence collaborator. The engine emits records;
// storing them is not required for its own correctness.
type Store interface {
	AppendTrade(t *models.Trade) error
	AppendSignal(s *models.Signal) error
	SaveSnapshot(s *models.PortfolioSnapshot) error
	GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// Quotes supplies current prices for the stock pool.
type Quotes interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// Publisher emits trade and signal events. May be nil.
type Publisher interface {
	PublishTradeExecuted(ctx context.Context, trade *models.Trade) error
	PublishSignal(ctx context.Context, signal *models.CombinedSignal) error
}

// Status is a read-only view of the engine for dashboards.
type Status struct {
	Running      bool                     `json:"running"`
	StockPool    []string                 `json:"stock_pool"`
	TotalSignals int64                    `json:"total_signals"`
	TotalTrades  int64                    `json:"total_trades"`
	Portfolio    models.PortfolioSnapshot `json:"portfolio"`
	Positions    []models.Position        `json:"positions"`
	LastPoll     time.Time                `json:"last_poll"`
}

// Engine is the live trading loop. One writer goroutine mutates the
// portfolio manager; readers use Status and the manager's snapshot
// methods.
type Engine struct {
	stockPool     []string
	pollInterval  time.Duration
	minConfidence float64
	params        fills.Params

	strategies []strategy.Strategy
	combiner   *combiner.Combiner
	manager    *portfolio.Manager
	store      Store
	quotes     Quotes
	publisher  Publisher

	mu            sync.Mutex
	running       bool
	stopRequested bool
	stop          chan struct{}
	done          chan struct{}
	totalSignals  int64
	totalTrades   int64
	lastPoll      time.Time
}

// New creates the live engine. The publisher may be nil when Kafka is
// not configured.
func New(cfg *config.Config, strategies []strategy.Strategy, comb *combiner.Combiner, manager *portfolio.Manager, store Store, quotes Quotes, publisher Publisher) (*Engine, error) {
	if len(cfg.Trading.StockPool) == 0 {
		return nil, fmt.Errorf("live engine requires a non-empty stock pool")
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("live engine requires at least one strategy")
	}

	return &Engine{
		stockPool:     cfg.Trading.StockPool,
		pollInterval:  time.Duration(cfg.Trading.PollInterval) * time.Second,
		minConfidence: cfg.Combiner.MinSignalConfidence,
		params:        fills.NewParams(cfg.Trading.CommissionRate, cfg.Trading.StampTaxRate, cfg.Trading.MinTradeUnit),
		strategies:    strategies,
		combiner:      comb,
		manager:       manager,
		store:         store,
		quotes:        quotes,
		publisher:     publisher,
	}, nil
}

// Start launches the polling loop. Returns an error when already
// running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("live engine already running")
	}
	e.running = true
	e.stopRequested = false
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	go e.loop(ctx)
	log.Printf("Live engine started: pool=%v interval=%s", e.stockPool, e.pollInterval)
	return nil
}

// Stop requests the loop to finish its current iteration and waits up
// to timeout for it to exit. Stopping is cooperative: work in flight
// completes before the stop takes effect. On timeout the loop keeps
// draining; a later Stop call waits for it again.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	if !e.stopRequested {
		e.stopRequested = true
		close(e.stop)
	}
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("live engine did not stop within %s", timeout)
	}

	log.Println("Live engine stopped")
	return nil
}

// Status returns a point-in-time view of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Running:      e.running,
		StockPool:    e.stockPool,
		TotalSignals: e.totalSignals,
		TotalTrades:  e.totalTrades,
		Portfolio:    e.manager.Snapshot(),
		Positions:    e.manager.Positions(),
		LastPoll:     e.lastPoll,
	}
}

func (e *Engine) loop(ctx context.Context) {
	// Loop exit is the single place running flips back off, so Status
	// reflects it even when the exit comes after a Stop timeout or from
	// context cancellation.
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.done)
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		// The stop flag is checked once per iteration.
		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := e.runOnce(ctx); err != nil {
				log.Printf("Trading loop iteration failed: %v", err)
			}
			metrics.PollDuration.Observe(time.Since(start).Seconds())

			e.mu.Lock()
			e.lastPoll = time.Now()
			e.mu.Unlock()
		}
	}
}

// runOnce executes one full poll: prices, signals, fills, risk
// controls, marks, snapshot.
func (e *Engine) runOnce(ctx context.Context) error {
	prices, err := e.quotes.GetQuotes(ctx, e.stockPool)
	if err != nil {
		return fmt.Errorf("failed to fetch current prices: %w", err)
	}
	if len(prices) == 0 {
		log.Println("No current prices available, skipping iteration")
		return nil
	}

	signals := e.generateSignals(ctx, prices)
	for _, combined := range signals {
		e.executeSignal(ctx, combined, prices)
	}

	e.runRiskControls(ctx, prices)

	e.manager.UpdatePrices(prices)

	snapshot := e.manager.Snapshot()
	if err := e.store.SaveSnapshot(&snapshot); err != nil {
		log.Printf("Failed to save portfolio snapshot: %v", err)
	}
	return nil
}

// generateSignals runs every strategy over each pooled symbol's
// recent history and combines the freshest signal per strategy.
func (e *Engine) generateSignals(ctx context.Context, prices map[string]decimal.Decimal) []*models.CombinedSignal {
	end := time.Now()
	start := end.AddDate(0, 0, -historyDays)

	var combined []*models.CombinedSignal
	for _, symbol := range e.stockPool {
		bars, err := e.store.GetSeries(ctx, symbol, start, end)
		if err != nil {
			log.Printf("Failed to load history for %s: %v", symbol, err)
			continue
		}
		if len(bars) == 0 {
			continue
		}

		var latest []models.Signal
		for _, strat := range e.strategies {
			signals, err := strat.GenerateSignals(bars, symbol)
			if err != nil {
				log.Printf("Strategy %s failed for %s: %v", strat.Name(), symbol, err)
				continue
			}
			if len(signals) > 0 {
				latest = append(latest, signals[len(signals)-1])
			}
		}
		if len(latest) == 0 {
			continue
		}

		result := e.combiner.Combine(latest, bars)
		if result == nil || result.Confidence < e.minConfidence {
			continue
		}
		if price, ok := prices[symbol]; ok {
			result.Price = price
		}

		e.recordSignal(ctx, result)
		combined = append(combined, result)
	}

	if len(combined) > 0 {
		log.Printf("Generated %d combined signals", len(combined))
	}
	return combined
}

func (e *Engine) recordSignal(ctx context.Context, s *models.CombinedSignal) {
	e.mu.Lock()
	e.totalSignals++
	e.mu.Unlock()
	metrics.SignalsGenerated.WithLabelValues(s.Symbol, s.Side).Inc()

	record := models.Signal{
		ID:         uuid.NewString(),
		Symbol:     s.Symbol,
		Side:       s.Side,
		Price:      s.Price,
		Timestamp:  s.Timestamp,
		Confidence: s.Confidence,
		Strategy:   "combined",
		Reason:     s.Reason,
	}
	if err := e.store.AppendSignal(&record); err != nil {
		log.Printf("Failed to persist signal for %s: %v", s.Symbol, err)
	}
	if e.publisher != nil {
		if err := e.publisher.PublishSignal(ctx, s); err != nil {
			log.Printf("Failed to publish signal for %s: %v", s.Symbol, err)
		}
	}
}

func (e *Engine) executeSignal(ctx context.Context, s *models.CombinedSignal, prices map[string]decimal.Decimal) {
	price, ok := prices[s.Symbol]
	if !ok {
		return
	}

	switch s.Side {
	case models.SideBuy:
		shares := e.manager.SizeNewPosition(s.Symbol, s.Confidence, price)
		if shares == 0 {
			return
		}
		if trade, ok := e.manager.ExecuteBuy(s.Symbol, shares, price); ok {
			e.recordTrade(ctx, trade, "combined", s.Reason)
		}
	case models.SideSell:
		pos, held := e.manager.Position(s.Symbol)
		if !held {
			return
		}
		// Sell a fraction of the holding proportional to strength.
		ratio := s.Strength
		if ratio > 1 {
			ratio = 1
		}
		shares := e.params.RoundToLot(int64(float64(pos.Shares) * ratio))
		if shares == 0 {
			return
		}
		if trade, ok := e.manager.ExecuteSell(s.Symbol, shares, price); ok {
			e.recordTrade(ctx, trade, "combined", s.Reason)
		}
	}
}

func (e *Engine) runRiskControls(ctx context.Context, prices map[string]decimal.Decimal) {
	for _, action := range e.manager.CheckRiskControls(prices) {
		price, ok := prices[action.Symbol]
		if !ok {
			continue
		}
		trade, ok := e.manager.ExecuteSell(action.Symbol, action.Shares, price)
		if !ok {
			continue
		}
		metrics.RiskLiquidations.WithLabelValues(action.Symbol, action.Reason).Inc()
		e.recordTrade(ctx, trade, "risk_control", action.Reason)
	}
}

func (e *Engine) recordTrade(ctx context.Context, trade *models.Trade, strategyTag, reason string) {
	trade.EventID = uuid.NewString()
	trade.Strategy = strategyTag
	trade.Reason = reason

	e.mu.Lock()
	e.totalTrades++
	e.mu.Unlock()
	metrics.TradesExecuted.WithLabelValues(trade.Symbol, trade.Side).Inc()

	if err := e.store.AppendTrade(trade); err != nil {
		log.Printf("Failed to persist trade for %s: %v", trade.Symbol, err)
	}
	if e.publisher != nil {
		if err := e.publisher.PublishTradeExecuted(ctx, trade); err != nil {
			log.Printf("Failed to publish trade for %s: %v", trade.Symbol, err)
		}
	}
}
