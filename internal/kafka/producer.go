package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/quant-sim/internal/models"
)

// Producer publishes trade and signal events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTradeExecuted publishes an executed fill
func (p *Producer) PublishTradeExecuted(ctx context.Context, trade *models.Trade) error {
	event := models.TradeEvent{
		EventType: models.EventTradeExecuted,
		Trade:     trade,
		Symbol:    trade.Symbol,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, trade.Symbol, event)
}

// PublishSignal publishes a combined signal
func (p *Producer) PublishSignal(ctx context.Context, signal *models.CombinedSignal) error {
	event := models.SignalEvent{
		EventType: models.EventSignalGenerated,
		Signal:    signal,
		Symbol:    signal.Symbol,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, signal.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
