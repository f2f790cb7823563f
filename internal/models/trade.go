package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade side constants
const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)

// Trade represents one executed fill against a ledger. Records are
// append-only; RequestedQuantity preserves the signal's original size
// when the engine downsized or clamped the fill.
type Trade struct {
	ID                int              `json:"id,omitempty"`
	EventID           string           `json:"event_id,omitempty"`
	Symbol            string           `json:"symbol"`
	Side              string           `json:"side"`
	Quantity          int64            `json:"quantity"`
	RequestedQuantity int64            `json:"requested_quantity"`
	Price             decimal.Decimal  `json:"price"`
	Amount            decimal.Decimal  `json:"amount"`
	Commission        decimal.Decimal  `json:"commission"`
	StampTax          decimal.Decimal  `json:"stamp_tax"`
	ProfitLoss        *decimal.Decimal `json:"profit_loss,omitempty"`
	CashAfter         decimal.Decimal  `json:"cash_after"`
	Strategy          string           `json:"strategy,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	ExecutedAt        time.Time        `json:"executed_at"`
	CreatedAt         time.Time        `json:"created_at,omitempty"`
}

// Fees returns commission plus stamp tax.
func (t *Trade) Fees() decimal.Decimal {
	return t.Commission.Add(t.StampTax)
}

// NetCashflow returns the signed cash effect of the trade: negative
// for buys (amount plus commission leaves the account), positive for
// sells (amount minus fees comes back).
func (t *Trade) NetCashflow() decimal.Decimal {
	if t.Side == TradeTypeBuy {
		return t.Amount.Add(t.Commission).Neg()
	}
	return t.Amount.Sub(t.Fees())
}
