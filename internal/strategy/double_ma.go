package strategy

import (
	"fmt"

	"github.com/trogers1052/quant-sim/internal/models"
)

// DoubleMA is a dual moving-average crossover strategy: buy when the
// short average crosses above the long one, sell when it crosses below.
type DoubleMA struct {
	shortPeriod int
	longPeriod  int
}

// NewDoubleMA creates a crossover strategy with the given windows.
func NewDoubleMA(shortPeriod, longPeriod int) (*DoubleMA, error) {
	if shortPeriod <= 0 || longPeriod <= 0 {
		return nil, fmt.Errorf("moving average periods must be positive, got %d/%d", shortPeriod, longPeriod)
	}
	if shortPeriod >= longPeriod {
		return nil, fmt.Errorf("short period %d must be below long period %d", shortPeriod, longPeriod)
	}
	return &DoubleMA{shortPeriod: shortPeriod, longPeriod: longPeriod}, nil
}

// Name returns the strategy identifier.
func (s *DoubleMA) Name() string {
	return fmt.Sprintf("double_ma_%d_%d", s.shortPeriod, s.longPeriod)
}

// GenerateSignals emits a BUY on each golden cross and a SELL on each
// death cross of the two averages.
func (s *DoubleMA) GenerateSignals(bars []models.PriceBar, symbol string) ([]models.Signal, error) {
	if len(bars) <= s.longPeriod {
		return nil, nil
	}

	closes := Closes(bars)
	short := SMA(closes, s.shortPeriod)
	long := SMA(closes, s.longPeriod)

	var signals []models.Signal
	for i := s.longPeriod; i < len(bars); i++ {
		wasAbove := short[i-1] > long[i-1]
		isAbove := short[i] > long[i]
		if wasAbove == isAbove {
			continue
		}

		side := models.SideBuy
		reason := fmt.Sprintf("MA%d crossed above MA%d", s.shortPeriod, s.longPeriod)
		if !isAbove {
			side = models.SideSell
			reason = fmt.Sprintf("MA%d crossed below MA%d", s.shortPeriod, s.longPeriod)
		}

		// Confidence scales with how far the averages separated.
		spread := short[i] - long[i]
		if spread < 0 {
			spread = -spread
		}
		confidence := 0.5
		if long[i] > 0 {
			confidence = clamp01(0.5 + spread/long[i]*10)
		}

		signals = append(signals, models.Signal{
			Symbol:     symbol,
			Side:       side,
			Price:      bars[i].Close,
			Quantity:   0,
			Timestamp:  bars[i].Date,
			Confidence: confidence,
			Strategy:   s.Name(),
			Reason:     reason,
		})
	}
	return signals, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
