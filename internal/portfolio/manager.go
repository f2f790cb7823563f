// Package portfolio owns the live ledger: cash, per-symbol positions,
// position sizing under capital and concentration constraints, and
// stop-loss / take-profit recommendations.
package portfolio

import (
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/fills"
	"github.com/trogers1052/quant-sim/internal/models"
)

// Risk action reason constants
const (
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
)

// RiskAction is a recommended liquidation. The manager reports these;
// the caller must still invoke ExecuteSell to realize them, so the
// same logic can drive automatic and human-confirmed flows.
type RiskAction struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Shares int64  `json:"shares"`
}

// Manager owns one ledger for the lifetime of a live or simulated
// session. One writer (the polling loop) plus any number of readers
// through the snapshot methods.
type Manager struct {
	mu sync.RWMutex

	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*models.Position

	params         fills.Params
	maxSinglePct   decimal.Decimal
	maxTotalPct    decimal.Decimal
	cashReservePct decimal.Decimal
	stopLossPct    float64
	takeProfitPct  float64
}

// NewManager creates a portfolio manager with the full initial
// capital in cash. The configuration must already be validated.
func NewManager(trading config.TradingConfig, risk config.RiskConfig) *Manager {
	return &Manager{
		initialCapital: decimal.NewFromFloat(trading.InitialCapital),
		cash:           decimal.NewFromFloat(trading.InitialCapital),
		positions:      make(map[string]*models.Position),
		params:         fills.NewParams(trading.CommissionRate, trading.StampTaxRate, trading.MinTradeUnit),
		maxSinglePct:   decimal.NewFromFloat(risk.MaxSinglePositionPct),
		maxTotalPct:    decimal.NewFromFloat(risk.MaxTotalPositionPct),
		cashReservePct: decimal.NewFromFloat(risk.CashReservePct),
		stopLossPct:    risk.StopLossPct,
		takeProfitPct:  risk.TakeProfitPct,
	}
}

// SizeNewPosition returns the lot-rounded share count a new position
// in symbol should open at, scaled by signal confidence. Returns 0,
// not an error, when the symbol is already held, the concentration
// ceiling is reached, or the result is below one lot. The live path
// never averages into an existing position.
func (m *Manager) SizeNewPosition(symbol string, confidence float64, price decimal.Decimal) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, held := m.positions[symbol]; held {
		return 0
	}
	if price.Sign() <= 0 || confidence <= 0 {
		return 0
	}

	one := decimal.NewFromInt(1)
	available := m.cash.Mul(one.Sub(m.cashReservePct))
	target := available.Mul(m.maxSinglePct).Mul(decimal.NewFromFloat(confidence))

	marketValue := m.marketValueLocked()
	totalValue := m.cash.Add(marketValue)
	if totalValue.Sign() <= 0 {
		return 0
	}
	currentPct := marketValue.Div(totalValue)
	if !currentPct.LessThan(m.maxTotalPct) {
		return 0
	}

	// Cap so total invested percentage never exceeds the ceiling.
	remaining := m.maxTotalPct.Sub(currentPct).Mul(totalValue)
	if remaining.LessThan(target) {
		target = remaining
	}

	perShare := price.Mul(one.Add(m.params.CommissionRate))
	shares := m.params.RoundToLot(target.Div(perShare).IntPart())

	// Re-cap against literal available cash after transaction cost.
	if perShare.Mul(decimal.NewFromInt(shares)).GreaterThan(available) {
		shares = m.params.RoundToLot(available.Div(perShare).IntPart())
	}
	if shares < m.params.MinTradeUnit {
		return 0
	}
	return shares
}

// ExecuteBuy fills a buy against the ledger. Returns the trade record
// and true on success; nil and false when the cost including
// commission exceeds cash.
func (m *Manager) ExecuteBuy(symbol string, shares int64, price decimal.Decimal) (*models.Trade, bool) {
	if shares <= 0 || price.Sign() <= 0 {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	amount, commission, total := m.params.BuyCost(price, shares)
	if total.GreaterThan(m.cash) {
		log.Printf("Buy rejected for %s: cost %s exceeds cash %s", symbol, total, m.cash)
		return nil, false
	}

	now := time.Now()
	pos, held := m.positions[symbol]
	if held {
		pos.AvgCost = fills.WeightedAvgCost(pos.Shares, pos.AvgCost, shares, price)
		pos.Shares += shares
		pos.CurrentPrice = price
		pos.LastUpdate = now
	} else {
		m.positions[symbol] = &models.Position{
			Symbol:       symbol,
			Shares:       shares,
			AvgCost:      price,
			CurrentPrice: price,
			EntryDate:    now,
			LastUpdate:   now,
		}
	}

	m.cash = m.cash.Sub(total)
	log.Printf("Bought %d %s @ %s, cash now %s", shares, symbol, price, m.cash)

	return &models.Trade{
		Symbol:            symbol,
		Side:              models.TradeTypeBuy,
		Quantity:          shares,
		RequestedQuantity: shares,
		Price:             price,
		Amount:            amount,
		Commission:        commission,
		StampTax:          decimal.Zero,
		CashAfter:         m.cash,
		ExecutedAt:        now,
	}, true
}

// ExecuteSell fills a sell against the ledger, clamping the quantity
// to the held amount. Fails only when the symbol has no position.
func (m *Manager) ExecuteSell(symbol string, shares int64, price decimal.Decimal) (*models.Trade, bool) {
	if price.Sign() <= 0 {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.positions[symbol]
	if !held {
		log.Printf("Sell rejected for %s: no position", symbol)
		return nil, false
	}

	requested := shares
	if shares >= pos.Shares {
		shares = pos.Shares
	} else {
		shares = m.params.RoundToLot(shares)
	}
	if shares <= 0 {
		return nil, false
	}

	amount, commission, stampTax, net := m.params.SellProceeds(price, shares)
	pnl := fills.RealizedPnl(amount, pos.AvgCost, shares, commission.Add(stampTax))

	now := time.Now()
	pos.Shares -= shares
	if pos.Shares == 0 {
		delete(m.positions, symbol)
	} else {
		pos.CurrentPrice = price
		pos.LastUpdate = now
	}

	m.cash = m.cash.Add(net)
	log.Printf("Sold %d %s @ %s, realized P&L %s, cash now %s", shares, symbol, price, pnl, m.cash)

	return &models.Trade{
		Symbol:            symbol,
		Side:              models.TradeTypeSell,
		Quantity:          shares,
		RequestedQuantity: requested,
		Price:             price,
		Amount:            amount,
		Commission:        commission,
		StampTax:          stampTax,
		ProfitLoss:        &pnl,
		CashAfter:         m.cash,
		ExecutedAt:        now,
	}, true
}

// UpdatePrices refreshes the mark on every position that has a
// current price. Mutation happens under the write lock; snapshot
// readers copy position values out while holding the read lock.
func (m *Manager) UpdatePrices(prices map[string]decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for symbol, pos := range m.positions {
		if price, ok := prices[symbol]; ok && price.Sign() > 0 {
			pos.CurrentPrice = price
			pos.LastUpdate = now
		}
	}
}

// CheckRiskControls inspects every held position at the given prices
// and returns the recommended liquidations: the full position when
// the loss reaches the stop, half of it (lot-rounded) when the gain
// reaches the target. Pure with respect to the ledger.
func (m *Manager) CheckRiskControls(prices map[string]decimal.Decimal) []RiskAction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var actions []RiskAction
	for symbol, pos := range m.positions {
		price, ok := prices[symbol]
		if !ok || pos.AvgCost.Sign() <= 0 {
			continue
		}
		pct, _ := price.Sub(pos.AvgCost).Div(pos.AvgCost).Float64()

		switch {
		case pct <= -m.stopLossPct:
			log.Printf("Stop loss triggered for %s: %.2f%%", symbol, pct*100)
			actions = append(actions, RiskAction{Symbol: symbol, Reason: ReasonStopLoss, Shares: pos.Shares})
		case pct >= m.takeProfitPct:
			half := m.params.RoundToLot(pos.Shares / 2)
			if half > 0 {
				log.Printf("Take profit triggered for %s: %.2f%%", symbol, pct*100)
				actions = append(actions, RiskAction{Symbol: symbol, Reason: ReasonTakeProfit, Shares: half})
			}
		}
	}
	return actions
}

// Cash returns the current cash balance.
func (m *Manager) Cash() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// Positions returns copies of the current positions.
func (m *Manager) Positions() []models.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	return out
}

// Position returns a copy of one position and whether it exists.
func (m *Manager) Position(symbol string) (models.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Snapshot returns a point-in-time portfolio summary at the current
// marks. Safe to call from reader goroutines while the loop writes.
func (m *Manager) Snapshot() models.PortfolioSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	marketValue := m.marketValueLocked()
	totalValue := m.cash.Add(marketValue)
	pnl := totalValue.Sub(m.initialCapital)
	pnlPct := 0.0
	if m.initialCapital.Sign() > 0 {
		pnlPct, _ = pnl.Div(m.initialCapital).Float64()
	}

	return models.PortfolioSnapshot{
		Date:          time.Now(),
		TotalValue:    totalValue,
		Cash:          m.cash,
		MarketValue:   marketValue,
		TotalPnl:      pnl,
		TotalPnlPct:   pnlPct,
		PositionCount: len(m.positions),
	}
}

// TotalValue returns cash plus market value at current marks.
func (m *Manager) TotalValue() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash.Add(m.marketValueLocked())
}

func (m *Manager) marketValueLocked() decimal.Decimal {
	mv := decimal.Zero
	for _, pos := range m.positions {
		mv = mv.Add(pos.MarketValue())
	}
	return mv
}
