package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTradeNetCashflow(t *testing.T) {
	buy := Trade{
		Side:       TradeTypeBuy,
		Amount:     decimal.NewFromInt(10000),
		Commission: decimal.NewFromInt(3),
	}
	assert.True(t, decimal.NewFromInt(-10003).Equal(buy.NetCashflow()))

	sell := Trade{
		Side:       TradeTypeSell,
		Amount:     decimal.NewFromInt(11000),
		Commission: decimal.NewFromFloat(3.3),
		StampTax:   decimal.NewFromInt(11),
	}
	assert.True(t, decimal.RequireFromString("10985.7").Equal(sell.NetCashflow()))
	assert.True(t, decimal.RequireFromString("14.3").Equal(sell.Fees()))
}
