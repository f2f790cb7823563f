package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quant-sim/internal/models"
)

func TestSignalsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	makeSignal := func(symbol, side string, confidence float64, ts time.Time) *models.Signal {
		return &models.Signal{
			ID:         "sig-" + symbol,
			Symbol:     symbol,
			Side:       side,
			Price:      decimal.NewFromFloat(10.50),
			Quantity:   0,
			Timestamp:  ts,
			Confidence: confidence,
			Strategy:   "rsi",
			Reason:     "oversold crossing",
		}
	}

	t.Run("AppendSignal and GetSignalsBySymbol", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.AppendSignal(makeSignal("600519", models.SideBuy, 0.8, at)))
		require.NoError(t, testDB.AppendSignal(makeSignal("000001", models.SideSell, 0.7, at)))

		signals, err := testDB.GetSignalsBySymbol("600519", 10)
		require.NoError(t, err)
		require.Len(t, signals, 1)
		assert.Equal(t, models.SideBuy, signals[0].Side)
		assert.InDelta(t, 0.8, signals[0].Confidence, 1e-9)
		assert.True(t, decimal.NewFromFloat(10.50).Equal(signals[0].Price))
	})

	t.Run("GetRecentSignals returns newest first", func(t *testing.T) {
		testDB.TruncateAll(t)

		for i := 0; i < 4; i++ {
			require.NoError(t, testDB.AppendSignal(makeSignal("000001", models.SideBuy, 0.6, at.Add(time.Duration(i)*time.Minute))))
		}

		signals, err := testDB.GetRecentSignals(2)
		require.NoError(t, err)
		require.Len(t, signals, 2)
		assert.False(t, signals[1].Timestamp.After(signals[0].Timestamp))
	})
}
