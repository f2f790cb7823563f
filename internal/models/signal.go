package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal side constants
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Signal represents an immutable trade intent produced by a strategy.
// Quantity may be zero, meaning the executing engine decides the size.
// Adjustments never mutate a Signal; they produce a new one.
type Signal struct {
	ID         string          `json:"id,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Timestamp  time.Time       `json:"timestamp"`
	Confidence float64         `json:"confidence"`
	Strategy   string          `json:"strategy,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// WithQuantity returns a copy of the signal with a different quantity.
func (s Signal) WithQuantity(qty int64) Signal {
	s.Quantity = qty
	return s
}

// CombinedSignal represents the merged decision of several strategies
// for one symbol at one timestamp.
type CombinedSignal struct {
	Symbol          string             `json:"symbol"`
	Side            string             `json:"side"`
	Strength        float64            `json:"strength"`
	Confidence      float64            `json:"confidence"`
	Price           decimal.Decimal    `json:"price"`
	Timestamp       time.Time          `json:"timestamp"`
	Individual      []Signal           `json:"individual_signals,omitempty"`
	StrategyWeights map[string]float64 `json:"strategy_weights,omitempty"`
	Reason          string             `json:"reason,omitempty"`
}
