package combiner

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/models"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testConfig(policy string, threshold float64) config.CombinerConfig {
	return config.CombinerConfig{
		Policy:             policy,
		SignalThreshold:    threshold,
		RebalanceFrequency: 5,
		TechnicalConfirm:   false,
		StrategyWeights:    map[string]float64{},
	}
}

func signal(strategy, side string, confidence float64, ts time.Time) models.Signal {
	return models.Signal{
		Symbol:     "600519",
		Side:       side,
		Price:      decimal.NewFromFloat(10),
		Timestamp:  ts,
		Confidence: confidence,
		Strategy:   strategy,
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults missing weights to equal shares", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyWeightedAverage, 0.3), []string{"double_ma", "rsi"})
		require.NoError(t, err)

		w := c.Weights()
		assert.InDelta(t, 0.5, w["double_ma"], 1e-9)
		assert.InDelta(t, 0.5, w["rsi"], 1e-9)
	})

	t.Run("renormalizes weights that do not sum to one", func(t *testing.T) {
		cfg := testConfig(config.PolicyWeightedAverage, 0.3)
		cfg.StrategyWeights = map[string]float64{"double_ma": 3, "rsi": 1}
		c, err := New(cfg, []string{"double_ma", "rsi"})
		require.NoError(t, err)

		w := c.Weights()
		assert.InDelta(t, 0.75, w["double_ma"], 1e-9)
		assert.InDelta(t, 0.25, w["rsi"], 1e-9)
	})

	t.Run("rejects negative weights and unknown policies", func(t *testing.T) {
		cfg := testConfig(config.PolicyWeightedAverage, 0.3)
		cfg.StrategyWeights = map[string]float64{"double_ma": -1}
		_, err := New(cfg, []string{"double_ma"})
		assert.Error(t, err)

		_, err = New(testConfig("plurality", 0.3), []string{"double_ma"})
		assert.Error(t, err)
	})
}

func TestWeightedAverage(t *testing.T) {
	signals := []models.Signal{
		signal("double_ma", models.SideBuy, 0.8, baseTime),
		signal("rsi", models.SideSell, 0.4, baseTime),
	}

	t.Run("net below threshold yields nothing", func(t *testing.T) {
		// net = 0.5*0.8 - 0.5*0.4 = 0.2 < 0.3
		c, err := New(testConfig(config.PolicyWeightedAverage, 0.3), []string{"double_ma", "rsi"})
		require.NoError(t, err)
		assert.Nil(t, c.Combine(signals, nil))
	})

	t.Run("net above threshold emits with scaled confidence", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyWeightedAverage, 0.1), []string{"double_ma", "rsi"})
		require.NoError(t, err)

		combined := c.Combine(signals, nil)
		require.NotNil(t, combined)
		assert.Equal(t, models.SideBuy, combined.Side)
		assert.InDelta(t, 0.2, combined.Strength, 1e-9)
		assert.InDelta(t, 0.4, combined.Confidence, 1e-9)
		assert.Len(t, combined.Individual, 2)
	})

	t.Run("negative net emits a sell", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyWeightedAverage, 0.1), []string{"double_ma", "rsi"})
		require.NoError(t, err)

		flipped := []models.Signal{
			signal("double_ma", models.SideSell, 0.8, baseTime),
			signal("rsi", models.SideBuy, 0.4, baseTime),
		}
		combined := c.Combine(flipped, nil)
		require.NotNil(t, combined)
		assert.Equal(t, models.SideSell, combined.Side)
	})
}

func TestMajorityVote(t *testing.T) {
	t.Run("strict winner emits", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyMajorityVote, 0), []string{"a", "b", "c"})
		require.NoError(t, err)

		signals := []models.Signal{
			signal("a", models.SideBuy, 0.7, baseTime),
			signal("b", models.SideBuy, 0.6, baseTime),
			signal("c", models.SideSell, 0.9, baseTime),
		}
		combined := c.Combine(signals, nil)
		require.NotNil(t, combined)
		assert.Equal(t, models.SideBuy, combined.Side)
		assert.InDelta(t, 2.0/3.0, combined.Strength, 1e-9)
	})

	t.Run("silent strategies count as hold votes", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyMajorityVote, 0), []string{"a", "b", "c"})
		require.NoError(t, err)

		// One buy vote out of three registered strategies: hold wins.
		signals := []models.Signal{signal("a", models.SideBuy, 0.9, baseTime)}
		assert.Nil(t, c.Combine(signals, nil))
	})

	t.Run("tie yields nothing", func(t *testing.T) {
		c, err := New(testConfig(config.PolicyMajorityVote, 0), []string{"a", "b"})
		require.NoError(t, err)

		signals := []models.Signal{
			signal("a", models.SideBuy, 0.7, baseTime),
			signal("b", models.SideSell, 0.7, baseTime),
		}
		assert.Nil(t, c.Combine(signals, nil))
	})
}

func TestUnanimous(t *testing.T) {
	c, err := New(testConfig(config.PolicyUnanimous, 0), []string{"a", "b"})
	require.NoError(t, err)

	t.Run("full agreement emits with averaged strength", func(t *testing.T) {
		signals := []models.Signal{
			signal("a", models.SideSell, 0.6, baseTime),
			signal("b", models.SideSell, 0.8, baseTime),
		}
		combined := c.Combine(signals, nil)
		require.NotNil(t, combined)
		assert.Equal(t, models.SideSell, combined.Side)
		assert.InDelta(t, 0.7, combined.Strength, 1e-9)
		assert.InDelta(t, 1.0, combined.Confidence, 1e-9)
	})

	t.Run("any disagreement yields nothing", func(t *testing.T) {
		signals := []models.Signal{
			signal("a", models.SideSell, 0.6, baseTime),
			signal("b", models.SideBuy, 0.8, baseTime),
		}
		assert.Nil(t, c.Combine(signals, nil))
	})
}

func TestRecencySuppression(t *testing.T) {
	c, err := New(testConfig(config.PolicyUnanimous, 0), []string{"a"})
	require.NoError(t, err)

	first := []models.Signal{signal("a", models.SideBuy, 0.8, baseTime)}
	require.NotNil(t, c.Combine(first, nil))

	t.Run("same side within the window is suppressed", func(t *testing.T) {
		again := []models.Signal{signal("a", models.SideBuy, 0.8, baseTime.AddDate(0, 0, 2))}
		assert.Nil(t, c.Combine(again, nil))
	})

	t.Run("opposite side passes", func(t *testing.T) {
		sell := []models.Signal{signal("a", models.SideSell, 0.8, baseTime.AddDate(0, 0, 2))}
		assert.NotNil(t, c.Combine(sell, nil))
	})

	t.Run("same side after the window passes", func(t *testing.T) {
		later := []models.Signal{signal("a", models.SideBuy, 0.8, baseTime.AddDate(0, 0, 10))}
		assert.NotNil(t, c.Combine(later, nil))
	})
}

func TestTechnicalConfirmation(t *testing.T) {
	cfg := testConfig(config.PolicyUnanimous, 0)
	cfg.TechnicalConfirm = true

	bars := make([]models.PriceBar, 10)
	for i := range bars {
		bars[i] = models.PriceBar{
			Symbol: "600519",
			Date:   baseTime.AddDate(0, 0, i-9),
			High:   decimal.NewFromFloat(10.5),
			Low:    decimal.NewFromFloat(9.5),
			Close:  decimal.NewFromFloat(10),
		}
	}

	t.Run("buy near the recent high is rejected", func(t *testing.T) {
		c, err := New(cfg, []string{"a"})
		require.NoError(t, err)

		s := signal("a", models.SideBuy, 0.8, baseTime)
		s.Price = decimal.NewFromFloat(10.40) // above 0.95 * 10.5
		assert.Nil(t, c.Combine([]models.Signal{s}, bars))
	})

	t.Run("buy away from the high passes", func(t *testing.T) {
		c, err := New(cfg, []string{"a"})
		require.NoError(t, err)

		s := signal("a", models.SideBuy, 0.8, baseTime)
		s.Price = decimal.NewFromFloat(9.80)
		assert.NotNil(t, c.Combine([]models.Signal{s}, bars))
	})

	t.Run("sell near the recent low is rejected", func(t *testing.T) {
		c, err := New(cfg, []string{"a"})
		require.NoError(t, err)

		s := signal("a", models.SideSell, 0.8, baseTime)
		s.Price = decimal.NewFromFloat(9.60) // below 1.05 * 9.5
		assert.Nil(t, c.Combine([]models.Signal{s}, bars))
	})

	t.Run("short history confirms by default", func(t *testing.T) {
		c, err := New(cfg, []string{"a"})
		require.NoError(t, err)

		s := signal("a", models.SideBuy, 0.8, baseTime)
		s.Price = decimal.NewFromFloat(10.40)
		assert.NotNil(t, c.Combine([]models.Signal{s}, bars[7:]))
	})
}

func TestUpdateWeights(t *testing.T) {
	c, err := New(testConfig(config.PolicyWeightedAverage, 0.3), []string{"double_ma", "rsi"})
	require.NoError(t, err)

	t.Run("updates and renormalizes", func(t *testing.T) {
		require.NoError(t, c.UpdateWeights(map[string]float64{"double_ma": 0.6, "rsi": 0.2}))
		w := c.Weights()
		assert.InDelta(t, 0.75, w["double_ma"], 1e-9)
		assert.InDelta(t, 0.25, w["rsi"], 1e-9)
	})

	t.Run("unknown strategies are ignored", func(t *testing.T) {
		require.NoError(t, c.UpdateWeights(map[string]float64{"macd": 1.0}))
		w := c.Weights()
		_, ok := w["macd"]
		assert.False(t, ok)
	})

	t.Run("rejects negative weights", func(t *testing.T) {
		assert.Error(t, c.UpdateWeights(map[string]float64{"rsi": -0.5}))
	})
}
