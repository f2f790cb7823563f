package backtest

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/fills"
	"github.com/trogers1052/quant-sim/internal/models"
)

// holding is the replay ledger's view of one open position. The
// backtest ledger averages into existing holdings on every buy, unlike
// the live manager which only opens fresh positions.
type holding struct {
	shares  int64
	avgCost decimal.Decimal
}

// ledger is the engine's internal cash-and-positions state. Each Run
// call owns its own ledger; nothing is shared across runs.
type ledger struct {
	cash      decimal.Decimal
	positions map[string]*holding
	params    fills.Params
	trades    []models.Trade
	skipped   []SkippedSignal
}

func newLedger(initialCapital decimal.Decimal, params fills.Params) *ledger {
	return &ledger{
		cash:      initialCapital,
		positions: make(map[string]*holding),
		params:    params,
	}
}

// execute applies one signal to the ledger, appending a trade record
// on a fill or a skip record when the signal cannot be honored.
func (l *ledger) execute(sig models.Signal) {
	switch sig.Side {
	case models.SideBuy:
		l.executeBuy(sig)
	case models.SideSell:
		l.executeSell(sig)
	default:
		l.skip(sig, "unknown signal side "+sig.Side)
	}
}

func (l *ledger) executeBuy(sig models.Signal) {
	requested := sig.Quantity
	qty := l.params.RoundToLot(requested)
	if requested == 0 {
		// Zero quantity means the engine decides the size.
		qty = l.params.DownsizeBuy(l.cash, sig.Price)
	}
	if qty < l.params.MinTradeUnit {
		l.skip(sig, "buy below one trading lot")
		return
	}

	_, _, total := l.params.BuyCost(sig.Price, qty)
	if total.GreaterThan(l.cash) {
		// Do not reject: downsize to what 95% of cash can fund.
		qty = l.params.DownsizeBuy(l.cash, sig.Price)
		if qty < l.params.MinTradeUnit {
			l.skip(sig, "insufficient funds even after downsizing")
			return
		}
	}

	amount, commission, total := l.params.BuyCost(sig.Price, qty)

	pos, ok := l.positions[sig.Symbol]
	if !ok {
		pos = &holding{avgCost: decimal.Zero}
		l.positions[sig.Symbol] = pos
	}
	pos.avgCost = fills.WeightedAvgCost(pos.shares, pos.avgCost, qty, sig.Price)
	pos.shares += qty

	l.cash = l.cash.Sub(total)
	l.trades = append(l.trades, models.Trade{
		Symbol:            sig.Symbol,
		Side:              models.TradeTypeBuy,
		Quantity:          qty,
		RequestedQuantity: requested,
		Price:             sig.Price,
		Amount:            amount,
		Commission:        commission,
		StampTax:          decimal.Zero,
		CashAfter:         l.cash,
		Strategy:          sig.Strategy,
		Reason:            sig.Reason,
		ExecutedAt:        sig.Timestamp,
	})
}

func (l *ledger) executeSell(sig models.Signal) {
	pos, ok := l.positions[sig.Symbol]
	if !ok || pos.shares == 0 {
		l.skip(sig, "no position to sell")
		return
	}

	requested := sig.Quantity
	qty := l.params.RoundToLot(requested)
	if requested == 0 {
		qty = pos.shares
	}
	// Selling more than held is clamped, not an error.
	if qty > pos.shares {
		qty = pos.shares
	}
	if qty <= 0 {
		l.skip(sig, "sell below one trading lot")
		return
	}

	amount, commission, stampTax, net := l.params.SellProceeds(sig.Price, qty)
	pnl := fills.RealizedPnl(amount, pos.avgCost, qty, commission.Add(stampTax))

	pos.shares -= qty
	if pos.shares == 0 {
		delete(l.positions, sig.Symbol)
	}

	l.cash = l.cash.Add(net)
	l.trades = append(l.trades, models.Trade{
		Symbol:            sig.Symbol,
		Side:              models.TradeTypeSell,
		Quantity:          qty,
		RequestedQuantity: requested,
		Price:             sig.Price,
		Amount:            amount,
		Commission:        commission,
		StampTax:          stampTax,
		ProfitLoss:        &pnl,
		CashAfter:         l.cash,
		Strategy:          sig.Strategy,
		Reason:            sig.Reason,
		ExecutedAt:        sig.Timestamp,
	})
}

func (l *ledger) skip(sig models.Signal, reason string) {
	log.Printf("Skipping %s %s signal at %s: %s",
		sig.Symbol, sig.Side, sig.Timestamp.Format(time.DateOnly), reason)
	l.skipped = append(l.skipped, SkippedSignal{
		Symbol:    sig.Symbol,
		Side:      sig.Side,
		Timestamp: sig.Timestamp,
		Reason:    reason,
	})
}
