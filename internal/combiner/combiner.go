// Package combiner merges the per-strategy signals for one symbol and
// timestamp into at most one actionable decision.
package combiner

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/models"
)

// proximityBand is how close (as a fraction) a price must be to its
// recent extreme before the technical confirmation rejects the signal.
const proximityBand = 0.05

// confirmLookback is how many prior bars the technical confirmation
// inspects for the recent high/low.
const confirmLookback = 5

type lastEmission struct {
	side string
	at   time.Time
}

// Combiner merges per-strategy signals under a configurable policy.
// Safe for one combining goroutine plus concurrent weight reads and
// audited weight updates.
type Combiner struct {
	policy           string
	threshold        float64
	rebalanceDays    int
	technicalConfirm bool

	mu      sync.RWMutex
	weights map[string]float64
	last    map[string]lastEmission
}

// New creates a Combiner for the named strategies. Missing weights
// default to equal shares; weights that do not sum to 1 are
// renormalized with a warning, never an error.
func New(cfg config.CombinerConfig, strategyNames []string) (*Combiner, error) {
	if len(strategyNames) == 0 {
		return nil, fmt.Errorf("combiner requires at least one strategy")
	}
	switch cfg.Policy {
	case config.PolicyWeightedAverage, config.PolicyMajorityVote, config.PolicyUnanimous:
	default:
		return nil, fmt.Errorf("unknown combination policy: %q", cfg.Policy)
	}

	weights := make(map[string]float64, len(strategyNames))
	for _, name := range strategyNames {
		if w, ok := cfg.StrategyWeights[name]; ok {
			if w < 0 {
				return nil, fmt.Errorf("strategy weight for %s must be non-negative, got %v", name, w)
			}
			weights[name] = w
		} else {
			weights[name] = 1.0 / float64(len(strategyNames))
		}
	}
	weights = normalize(weights)

	return &Combiner{
		policy:           cfg.Policy,
		threshold:        cfg.SignalThreshold,
		rebalanceDays:    cfg.RebalanceFrequency,
		technicalConfirm: cfg.TechnicalConfirm,
		weights:          weights,
		last:             make(map[string]lastEmission),
	}, nil
}

// Weights returns a copy of the current normalized strategy weights.
func (c *Combiner) Weights() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

// UpdateWeights replaces the strategy weights, renormalizing the new
// values. Strategies absent from the update keep their old weight
// before renormalization. This is the one audited mutation path.
func (c *Combiner) UpdateWeights(newWeights map[string]float64) error {
	for name, w := range newWeights {
		if w < 0 {
			return fmt.Errorf("strategy weight for %s must be non-negative, got %v", name, w)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	updated := make(map[string]float64, len(c.weights))
	for name, old := range c.weights {
		if w, ok := newWeights[name]; ok {
			log.Printf("Updating weight for %s: %.4f -> %.4f", name, old, w)
			updated[name] = w
		} else {
			updated[name] = old
		}
	}
	c.weights = normalize(updated)
	return nil
}

// Combine merges the signals emitted by the strategies for one symbol
// at one timestamp. bars is the symbol's price history up to and
// including that timestamp, used for technical confirmation. Returns
// nil when the policy resolves to HOLD or a filter suppresses the
// result.
func (c *Combiner) Combine(signals []models.Signal, bars []models.PriceBar) *models.CombinedSignal {
	if len(signals) == 0 {
		return nil
	}

	c.mu.RLock()
	var combined *models.CombinedSignal
	switch c.policy {
	case config.PolicyMajorityVote:
		combined = c.majorityVote(signals)
	case config.PolicyUnanimous:
		combined = c.unanimous(signals)
	default:
		combined = c.weightedAverage(signals)
	}
	c.mu.RUnlock()

	if combined == nil {
		return nil
	}

	if c.suppressedByRecency(combined) {
		log.Printf("Suppressing %s %s signal: same side emitted within %d days",
			combined.Symbol, combined.Side, c.rebalanceDays)
		return nil
	}
	if c.technicalConfirm && !confirmed(combined, bars) {
		log.Printf("Rejecting %s %s signal: failed technical confirmation", combined.Symbol, combined.Side)
		return nil
	}

	c.mu.Lock()
	c.last[combined.Symbol] = lastEmission{side: combined.Side, at: combined.Timestamp}
	c.mu.Unlock()
	return combined
}

func (c *Combiner) weightedAverage(signals []models.Signal) *models.CombinedSignal {
	var net float64
	for _, s := range signals {
		w := c.weights[s.Strategy]
		switch s.Side {
		case models.SideBuy:
			net += w * s.Confidence
		case models.SideSell:
			net -= w * s.Confidence
		}
	}

	if math.Abs(net) < c.threshold {
		return nil
	}

	side := models.SideBuy
	if net < 0 {
		side = models.SideSell
	}
	return c.build(signals, side,
		math.Min(math.Abs(net), 1.0),
		math.Min(2*math.Abs(net), 1.0),
		fmt.Sprintf("weighted net strength %.2f", net))
}

func (c *Combiner) majorityVote(signals []models.Signal) *models.CombinedSignal {
	buyVotes, sellVotes := 0, 0
	for _, s := range signals {
		switch s.Side {
		case models.SideBuy:
			buyVotes++
		case models.SideSell:
			sellVotes++
		}
	}

	// Strategies that emitted nothing count as HOLD voters.
	totalVotes := len(c.weights)
	if totalVotes < len(signals) {
		totalVotes = len(signals)
	}
	holdVotes := totalVotes - buyVotes - sellVotes

	var side string
	var winning int
	switch {
	case buyVotes > sellVotes && buyVotes > holdVotes:
		side, winning = models.SideBuy, buyVotes
	case sellVotes > buyVotes && sellVotes > holdVotes:
		side, winning = models.SideSell, sellVotes
	default:
		return nil
	}

	ratio := float64(winning) / float64(totalVotes)
	return c.build(signals, side, ratio, ratio,
		fmt.Sprintf("majority vote %d/%d", winning, totalVotes))
}

func (c *Combiner) unanimous(signals []models.Signal) *models.CombinedSignal {
	side := signals[0].Side
	var sum float64
	for _, s := range signals {
		if s.Side != side {
			return nil
		}
		sum += s.Confidence
	}

	// Full agreement is itself the confirming evidence.
	avg := sum / float64(len(signals))
	return c.build(signals, side, avg, 1.0,
		fmt.Sprintf("unanimous %s from %d strategies", side, len(signals)))
}

func (c *Combiner) build(signals []models.Signal, side string, strength, confidence float64, reason string) *models.CombinedSignal {
	weights := make(map[string]float64, len(c.weights))
	for k, v := range c.weights {
		weights[k] = v
	}
	return &models.CombinedSignal{
		Symbol:          signals[0].Symbol,
		Side:            side,
		Strength:        strength,
		Confidence:      confidence,
		Price:           signals[0].Price,
		Timestamp:       signals[0].Timestamp,
		Individual:      signals,
		StrategyWeights: weights,
		Reason:          reason,
	}
}

// suppressedByRecency reports whether a same-side combined signal for
// the symbol was emitted less than rebalanceDays ago.
func (c *Combiner) suppressedByRecency(s *models.CombinedSignal) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prev, ok := c.last[s.Symbol]
	if !ok || prev.side != s.Side {
		return false
	}
	return s.Timestamp.Sub(prev.at) < time.Duration(c.rebalanceDays)*24*time.Hour
}

// confirmed applies the price-proximity heuristics: a fresh BUY near
// the recent high is chasing, a fresh SELL near the recent low is
// capitulation. Short histories confirm by default.
func confirmed(s *models.CombinedSignal, bars []models.PriceBar) bool {
	idx := -1
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Date.After(s.Timestamp) {
			idx = i
			break
		}
	}
	if idx < confirmLookback {
		return true
	}

	window := bars[idx-confirmLookback : idx+1]
	switch s.Side {
	case models.SideBuy:
		high := window[0].High
		for _, b := range window[1:] {
			if b.High.GreaterThan(high) {
				high = b.High
			}
		}
		limit := high.Mul(decimal.NewFromFloat(1 - proximityBand))
		return !s.Price.GreaterThan(limit)
	case models.SideSell:
		low := window[0].Low
		for _, b := range window[1:] {
			if b.Low.LessThan(low) {
				low = b.Low
			}
		}
		limit := low.Mul(decimal.NewFromFloat(1 + proximityBand))
		return !s.Price.LessThan(limit)
	}
	return true
}

func normalize(weights map[string]float64) map[string]float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		equal := 1.0 / float64(len(weights))
		out := make(map[string]float64, len(weights))
		for name := range weights {
			out[name] = equal
		}
		return out
	}
	if math.Abs(total-1.0) > 0.01 {
		log.Printf("Strategy weights sum to %.4f, renormalizing to 1", total)
	}
	out := make(map[string]float64, len(weights))
	for name, w := range weights {
		out[name] = w / total
	}
	return out
}
