package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/models"
)

// QuoteStore receives current prices from the feed. The live loop
// reads them back when it polls.
type QuoteStore interface {
	SetQuote(ctx context.Context, symbol string, price decimal.Decimal) error
}

// Consumer ingests price tick events from the market data feed and
// keeps the quote store current.
type Consumer struct {
	reader *kafka.Reader
	quotes QuoteStore
}

// NewConsumer creates a Kafka consumer for price tick events
func NewConsumer(brokers []string, topic, groupID string, quotes QuoteStore) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		quotes: quotes,
	}
}

// Start begins consuming messages until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting price tick consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Price tick consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceTickEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price tick: %w", err)
	}

	if event.EventType != models.EventPriceTick {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q for %s: %w", event.Price, event.Symbol, err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("non-positive price %s for %s", price, event.Symbol)
	}

	if err := c.quotes.SetQuote(ctx, event.Symbol, price); err != nil {
		return fmt.Errorf("failed to store quote: %w", err)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
