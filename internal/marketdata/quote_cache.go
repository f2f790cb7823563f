package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/config"
)

// quoteTTL bounds how stale a cached quote may be before the live
// loop stops trusting it.
const quoteTTL = 5 * time.Minute

// QuoteCache stores the most recent price per symbol in Redis. The
// price tick consumer writes it; the live loop reads it.
type QuoteCache struct {
	client *redis.Client
}

// NewQuoteCache connects to Redis with the given configuration.
func NewQuoteCache(cfg config.RedisConfig) *QuoteCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &QuoteCache{client: client}
}

// Ping verifies the Redis connection.
func (c *QuoteCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// SetQuote stores the current price for a symbol.
func (c *QuoteCache) SetQuote(ctx context.Context, symbol string, price decimal.Decimal) error {
	if err := c.client.Set(ctx, quoteKey(symbol), price.String(), quoteTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache quote for %s: %w", symbol, err)
	}
	return nil
}

// GetQuote returns the cached price for a symbol; the second return
// is false when no fresh quote exists.
func (c *QuoteCache) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, quoteKey(symbol)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read quote for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached quote for %s: %w", symbol, err)
	}
	return price, true, nil
}

// GetQuotes returns the cached prices for all symbols that have one.
func (c *QuoteCache) GetQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		price, ok, err := c.GetQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if ok {
			out[symbol] = price
		}
	}
	return out, nil
}

// Close releases the Redis connection.
func (c *QuoteCache) Close() error {
	return c.client.Close()
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}
