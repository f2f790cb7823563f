package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents a current holding in one symbol.
// Invariant: Shares == 0 implies AvgCost == 0; a position with zero
// shares is removed from the ledger rather than kept around.
type Position struct {
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	EntryDate    time.Time       `json:"entry_date"`
	LastUpdate   time.Time       `json:"last_update"`
}

// MarketValue returns shares times the current price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.CurrentPrice.Mul(decimal.NewFromInt(p.Shares))
}

// UnrealizedPnl returns (current price - avg cost) times shares.
func (p *Position) UnrealizedPnl() decimal.Decimal {
	return p.CurrentPrice.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Shares))
}

// UnrealizedPnlPct returns the unrealized gain as a fraction of cost.
// Zero when the position has no cost basis.
func (p *Position) UnrealizedPnlPct() float64 {
	if p.AvgCost.IsZero() {
		return 0
	}
	pct, _ := p.CurrentPrice.Sub(p.AvgCost).Div(p.AvgCost).Float64()
	return pct
}
