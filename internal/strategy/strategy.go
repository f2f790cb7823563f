// Package strategy defines the signal-generation contract and the
// built-in indicator strategies.
package strategy

import (
	"github.com/trogers1052/quant-sim/internal/models"
)

// Strategy generates trade signals from a price series. Implementations
// must be deterministic: calling GenerateSignals repeatedly on the same
// inputs must produce the same signals, so backtests are reproducible.
type Strategy interface {
	// Name returns the strategy identifier used for weighting and audit.
	Name() string

	// GenerateSignals produces a finite list of signals for the symbol,
	// in chronological order. An error means the series could not be
	// evaluated at all; a short series yields no signals, not an error.
	GenerateSignals(bars []models.PriceBar, symbol string) ([]models.Signal, error)
}
