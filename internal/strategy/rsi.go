package strategy

import (
	"fmt"

	"github.com/trogers1052/quant-sim/internal/models"
)

// RSIStrategy buys when the RSI drops below the oversold bound and
// sells when it rises above the overbought bound.
type RSIStrategy struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIStrategy creates an RSI mean-reversion strategy. The bounds
// are validated here so a misconfiguration fails before any run.
func NewRSIStrategy(period int, oversold, overbought float64) (*RSIStrategy, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period must be positive, got %d", period)
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("rsi oversold bound %v must be below overbought bound %v", oversold, overbought)
	}
	if oversold < 0 || overbought > 100 {
		return nil, fmt.Errorf("rsi bounds must be within [0,100], got %v/%v", oversold, overbought)
	}
	return &RSIStrategy{period: period, oversold: oversold, overbought: overbought}, nil
}

// Name returns the strategy identifier.
func (s *RSIStrategy) Name() string {
	return fmt.Sprintf("rsi_%d", s.period)
}

// GenerateSignals emits a BUY when the RSI crosses down into oversold
// territory and a SELL when it crosses up into overbought territory.
func (s *RSIStrategy) GenerateSignals(bars []models.PriceBar, symbol string) ([]models.Signal, error) {
	if len(bars) <= s.period+1 {
		return nil, nil
	}

	rsi := RSI(Closes(bars), s.period)

	var signals []models.Signal
	for i := s.period + 1; i < len(bars); i++ {
		switch {
		case rsi[i] < s.oversold && rsi[i-1] >= s.oversold:
			signals = append(signals, models.Signal{
				Symbol:     symbol,
				Side:       models.SideBuy,
				Price:      bars[i].Close,
				Quantity:   0,
				Timestamp:  bars[i].Date,
				Confidence: clamp01(0.5 + (s.oversold-rsi[i])/s.oversold),
				Strategy:   s.Name(),
				Reason:     fmt.Sprintf("RSI %.1f below oversold %.1f", rsi[i], s.oversold),
			})
		case rsi[i] > s.overbought && rsi[i-1] <= s.overbought:
			signals = append(signals, models.Signal{
				Symbol:     symbol,
				Side:       models.SideSell,
				Price:      bars[i].Close,
				Quantity:   0,
				Timestamp:  bars[i].Date,
				Confidence: clamp01(0.5 + (rsi[i]-s.overbought)/(100-s.overbought)),
				Strategy:   s.Name(),
				Reason:     fmt.Sprintf("RSI %.1f above overbought %.1f", rsi[i], s.overbought),
			})
		}
	}
	return signals, nil
}
