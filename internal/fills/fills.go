// Package fills holds the fill arithmetic shared by the backtest
// engine's replay ledger and the live portfolio manager: commission
// and stamp tax formulas, lot rounding, buy downsizing, and weighted
// average cost. Keeping the math in one place stops the two ledgers
// drifting apart.
package fills

import (
	"github.com/shopspring/decimal"
)

// cashBuffer is the fraction of cash an underfunded buy is allowed to
// consume after downsizing; the remaining 5% stays liquid.
var cashBuffer = decimal.NewFromFloat(0.95)

// Params holds the fee schedule and lot size for fill computation.
type Params struct {
	CommissionRate decimal.Decimal
	StampTaxRate   decimal.Decimal
	MinTradeUnit   int64
}

// NewParams builds fill parameters from configured rates.
func NewParams(commissionRate, stampTaxRate float64, minTradeUnit int64) Params {
	return Params{
		CommissionRate: decimal.NewFromFloat(commissionRate),
		StampTaxRate:   decimal.NewFromFloat(stampTaxRate),
		MinTradeUnit:   minTradeUnit,
	}
}

// RoundToLot rounds a share quantity down to the nearest trading lot.
func (p Params) RoundToLot(qty int64) int64 {
	if p.MinTradeUnit <= 0 {
		return qty
	}
	return (qty / p.MinTradeUnit) * p.MinTradeUnit
}

// BuyCost returns the gross amount, commission, and total cash outlay
// for buying qty shares at price. Buys pay commission only.
func (p Params) BuyCost(price decimal.Decimal, qty int64) (amount, commission, total decimal.Decimal) {
	amount = price.Mul(decimal.NewFromInt(qty))
	commission = amount.Mul(p.CommissionRate)
	total = amount.Add(commission)
	return amount, commission, total
}

// SellProceeds returns the gross amount, commission, stamp tax, and
// net cash credit for selling qty shares at price. Sells pay both
// commission and stamp tax.
func (p Params) SellProceeds(price decimal.Decimal, qty int64) (amount, commission, stampTax, net decimal.Decimal) {
	amount = price.Mul(decimal.NewFromInt(qty))
	commission = amount.Mul(p.CommissionRate)
	stampTax = amount.Mul(p.StampTaxRate)
	net = amount.Sub(commission).Sub(stampTax)
	return amount, commission, stampTax, net
}

// DownsizeBuy computes the largest lot-rounded quantity an
// underfunded buy can fill: floor(0.95 * cash / (price * (1 + commission)))
// rounded down to the lot. Returns 0 when even one lot is out of reach.
func (p Params) DownsizeBuy(cash, price decimal.Decimal) int64 {
	if price.Sign() <= 0 {
		return 0
	}
	perShare := price.Mul(decimal.NewFromInt(1).Add(p.CommissionRate))
	qty := cash.Mul(cashBuffer).Div(perShare).IntPart()
	return p.RoundToLot(qty)
}

// MaxAffordable returns the largest lot-rounded quantity the given
// cash can pay for at price including commission, with no buffer held
// back.
func (p Params) MaxAffordable(cash, price decimal.Decimal) int64 {
	if price.Sign() <= 0 {
		return 0
	}
	perShare := price.Mul(decimal.NewFromInt(1).Add(p.CommissionRate))
	return p.RoundToLot(cash.Div(perShare).IntPart())
}

// WeightedAvgCost returns the new average cost after adding fillQty
// shares at price to an existing holding.
func WeightedAvgCost(oldQty int64, oldAvg decimal.Decimal, fillQty int64, price decimal.Decimal) decimal.Decimal {
	newQty := oldQty + fillQty
	if newQty == 0 {
		return decimal.Zero
	}
	oldBasis := oldAvg.Mul(decimal.NewFromInt(oldQty))
	fillBasis := price.Mul(decimal.NewFromInt(fillQty))
	return oldBasis.Add(fillBasis).Div(decimal.NewFromInt(newQty))
}

// RealizedPnl returns proceeds before fees minus cost basis minus
// fees for a sell of qty shares held at avgCost.
func RealizedPnl(amount, avgCost decimal.Decimal, qty int64, fees decimal.Decimal) decimal.Decimal {
	costBasis := avgCost.Mul(decimal.NewFromInt(qty))
	return amount.Sub(costBasis).Sub(fees)
}
