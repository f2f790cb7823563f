package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/models"
)

func testManager() *Manager {
	trading := config.TradingConfig{
		InitialCapital: 100000,
		CommissionRate: 0.0003,
		StampTaxRate:   0.001,
		MinTradeUnit:   100,
	}
	risk := config.RiskConfig{
		MaxSinglePositionPct: 0.25,
		MaxTotalPositionPct:  0.90,
		CashReservePct:       0.10,
		StopLossPct:          0.08,
		TakeProfitPct:        0.15,
	}
	return NewManager(trading, risk)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSizeNewPosition(t *testing.T) {
	t.Run("scales target by confidence and rounds to lot", func(t *testing.T) {
		m := testManager()

		// available = 90000, target = 90000 * 0.25 * 1.0 = 22500
		// 22500 / 10.003 = 2249.3, lot-rounded to 2200
		shares := m.SizeNewPosition("600519", 1.0, dec("10"))
		assert.Equal(t, int64(2200), shares)

		// Half confidence halves the target
		shares = m.SizeNewPosition("600519", 0.5, dec("10"))
		assert.Equal(t, int64(1100), shares)
	})

	t.Run("returns zero for a held symbol", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 100, dec("10"))
		require.True(t, ok)

		assert.Equal(t, int64(0), m.SizeNewPosition("600519", 1.0, dec("10")))
	})

	t.Run("returns zero for zero price or confidence", func(t *testing.T) {
		m := testManager()
		assert.Equal(t, int64(0), m.SizeNewPosition("600519", 0, dec("10")))
		assert.Equal(t, int64(0), m.SizeNewPosition("600519", 1.0, decimal.Zero))
	})

	t.Run("returns zero below one lot", func(t *testing.T) {
		m := testManager()
		// Expensive stock: 22500 / 1700.51 = 13 shares, under one lot
		assert.Equal(t, int64(0), m.SizeNewPosition("600519", 1.0, dec("1700")))
	})
}

func TestExecuteBuy(t *testing.T) {
	t.Run("debits cash and opens a position", func(t *testing.T) {
		m := testManager()

		trade, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)
		assert.Equal(t, int64(1000), trade.Quantity)
		assert.True(t, dec("10000").Equal(trade.Amount))
		assert.True(t, dec("3").Equal(trade.Commission))
		assert.True(t, dec("89997").Equal(trade.CashAfter))
		assert.True(t, dec("89997").Equal(m.Cash()))

		pos, held := m.Position("600519")
		require.True(t, held)
		assert.Equal(t, int64(1000), pos.Shares)
		assert.True(t, dec("10").Equal(pos.AvgCost))
	})

	t.Run("rejects a buy exceeding cash", func(t *testing.T) {
		m := testManager()

		_, ok := m.ExecuteBuy("600519", 100000, dec("10"))
		assert.False(t, ok)
		assert.True(t, dec("100000").Equal(m.Cash()))
	})

	t.Run("averages cost into an existing position", func(t *testing.T) {
		m := testManager()

		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)
		_, ok = m.ExecuteBuy("600519", 1000, dec("12"))
		require.True(t, ok)

		pos, _ := m.Position("600519")
		assert.Equal(t, int64(2000), pos.Shares)
		assert.True(t, dec("11").Equal(pos.AvgCost))
	})
}

func TestExecuteSell(t *testing.T) {
	t.Run("credits net proceeds and realizes pnl", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		trade, ok := m.ExecuteSell("600519", 1000, dec("11"))
		require.True(t, ok)
		require.NotNil(t, trade.ProfitLoss)
		assert.True(t, dec("985.7").Equal(*trade.ProfitLoss))
		assert.True(t, dec("100982.7").Equal(m.Cash()))

		_, held := m.Position("600519")
		assert.False(t, held)
	})

	t.Run("clamps oversell to held shares", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 500, dec("10"))
		require.True(t, ok)

		trade, ok := m.ExecuteSell("600519", 2000, dec("10"))
		require.True(t, ok)
		assert.Equal(t, int64(500), trade.Quantity)
		assert.Equal(t, int64(2000), trade.RequestedQuantity)
	})

	t.Run("lot-rounds a partial sell", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		trade, ok := m.ExecuteSell("600519", 350, dec("10"))
		require.True(t, ok)
		assert.Equal(t, int64(300), trade.Quantity)

		pos, _ := m.Position("600519")
		assert.Equal(t, int64(700), pos.Shares)
	})

	t.Run("fails with no position", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteSell("600519", 100, dec("10"))
		assert.False(t, ok)
	})
}

func TestCheckRiskControls(t *testing.T) {
	t.Run("stop loss liquidates the full position", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		// -8.5% breaches the 8% stop
		actions := m.CheckRiskControls(map[string]decimal.Decimal{"600519": dec("9.15")})
		require.Len(t, actions, 1)
		assert.Equal(t, ReasonStopLoss, actions[0].Reason)
		assert.Equal(t, int64(1000), actions[0].Shares)
	})

	t.Run("take profit sells half lot-rounded", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		actions := m.CheckRiskControls(map[string]decimal.Decimal{"600519": dec("11.60")})
		require.Len(t, actions, 1)
		assert.Equal(t, ReasonTakeProfit, actions[0].Reason)
		assert.Equal(t, int64(500), actions[0].Shares)
	})

	t.Run("no action inside the bands", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		actions := m.CheckRiskControls(map[string]decimal.Decimal{"600519": dec("10.20")})
		assert.Empty(t, actions)
	})

	t.Run("does not mutate the ledger", func(t *testing.T) {
		m := testManager()
		_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
		require.True(t, ok)

		m.CheckRiskControls(map[string]decimal.Decimal{"600519": dec("5")})

		pos, held := m.Position("600519")
		require.True(t, held)
		assert.Equal(t, int64(1000), pos.Shares)
	})
}

func TestSnapshot(t *testing.T) {
	m := testManager()
	_, ok := m.ExecuteBuy("600519", 1000, dec("10"))
	require.True(t, ok)

	m.UpdatePrices(map[string]decimal.Decimal{"600519": dec("11")})

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.PositionCount)
	assert.True(t, dec("11000").Equal(snap.MarketValue))
	assert.True(t, dec("89997").Equal(snap.Cash))
	assert.True(t, dec("100997").Equal(snap.TotalValue))
	assert.True(t, dec("997").Equal(snap.TotalPnl))
	assert.InDelta(t, 0.00997, snap.TotalPnlPct, 1e-9)
}

func TestPositionModel(t *testing.T) {
	pos := models.Position{
		Symbol:       "600519",
		Shares:       1000,
		AvgCost:      dec("10"),
		CurrentPrice: dec("11"),
	}
	assert.True(t, dec("11000").Equal(pos.MarketValue()))
	assert.True(t, dec("1000").Equal(pos.UnrealizedPnl()))
	assert.InDelta(t, 0.10, pos.UnrealizedPnlPct(), 1e-9)
}
