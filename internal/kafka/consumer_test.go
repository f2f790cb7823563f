package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quant-sim/internal/models"
)

// MockQuoteStore implements QuoteStore for testing
type MockQuoteStore struct {
	quotes   map[string]decimal.Decimal
	SetCalls int
}

func NewMockQuoteStore() *MockQuoteStore {
	return &MockQuoteStore{quotes: make(map[string]decimal.Decimal)}
}

func (m *MockQuoteStore) SetQuote(ctx context.Context, symbol string, price decimal.Decimal) error {
	m.SetCalls++
	m.quotes[symbol] = price
	return nil
}

func tickMessage(t *testing.T, event models.PriceTickEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Symbol), Value: data}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("valid price tick updates the quote store", func(t *testing.T) {
		store := NewMockQuoteStore()
		c := &Consumer{quotes: store}

		msg := tickMessage(t, models.PriceTickEvent{
			EventType: models.EventPriceTick,
			Symbol:    "600519",
			Price:     "1712.50",
			Timestamp: time.Now(),
		})
		require.NoError(t, c.processMessage(ctx, msg))

		assert.Equal(t, 1, store.SetCalls)
		assert.True(t, decimal.RequireFromString("1712.50").Equal(store.quotes["600519"]))
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		store := NewMockQuoteStore()
		c := &Consumer{quotes: store}

		msg := tickMessage(t, models.PriceTickEvent{
			EventType: "unrelated.event",
			Symbol:    "600519",
			Price:     "10",
		})
		require.NoError(t, c.processMessage(ctx, msg))
		assert.Zero(t, store.SetCalls)
	})

	t.Run("malformed payload errors", func(t *testing.T) {
		store := NewMockQuoteStore()
		c := &Consumer{quotes: store}

		err := c.processMessage(ctx, kafka.Message{Value: []byte("not json")})
		assert.Error(t, err)
		assert.Zero(t, store.SetCalls)
	})

	t.Run("unparseable price errors", func(t *testing.T) {
		store := NewMockQuoteStore()
		c := &Consumer{quotes: store}

		msg := tickMessage(t, models.PriceTickEvent{
			EventType: models.EventPriceTick,
			Symbol:    "600519",
			Price:     "n/a",
		})
		assert.Error(t, c.processMessage(ctx, msg))
	})

	t.Run("non-positive price errors", func(t *testing.T) {
		store := NewMockQuoteStore()
		c := &Consumer{quotes: store}

		msg := tickMessage(t, models.PriceTickEvent{
			EventType: models.EventPriceTick,
			Symbol:    "600519",
			Price:     "-1",
		})
		assert.Error(t, c.processMessage(ctx, msg))
		assert.Zero(t, store.SetCalls)
	})
}
