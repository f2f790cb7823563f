package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar represents one day of OHLCV price data for a symbol.
type PriceBar struct {
	ID        int             `json:"id,omitempty"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}
