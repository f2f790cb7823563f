package models

import "time"

// Kafka event type constants
const (
	EventTradeExecuted   = "TRADE_EXECUTED"
	EventSignalGenerated = "SIGNAL_GENERATED"
	EventPriceTick       = "PRICE_TICK"
)

// TradeEvent represents a Kafka event for an executed fill.
type TradeEvent struct {
	EventType string    `json:"event_type"`
	Trade     *Trade    `json:"trade,omitempty"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

// SignalEvent represents a Kafka event for a combined signal.
type SignalEvent struct {
	EventType string          `json:"event_type"`
	Signal    *CombinedSignal `json:"signal,omitempty"`
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceTickEvent represents a current-price update consumed from the
// market data feed. Price is kept as a string on the wire, the same
// way the upstream feed publishes it.
type PriceTickEvent struct {
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Price     string    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
