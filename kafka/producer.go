package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/yashrajoria/order-ingestion-service/models"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventProducer publishes order lifecycle events to a Kafka topic,
// keyed by order number so events for one order stay on one partition.
type OrderEventProducer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewOrderEventProducer(brokers []string, topic string, logger *zap.Logger) *OrderEventProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	logger.Info("kafka order event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &OrderEventProducer{writer: w, topic: topic, logger: logger}
}

// PublishOrderCreated writes evt as JSON.
func (p *OrderEventProducer) PublishOrderCreated(ctx context.Context, evt models.OrderCreatedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderNumber),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	p.logger.Debug("order event published",
		zap.String("topic", p.topic),
		zap.String("order_number", evt.OrderNumber),
	)
	return nil
}

func (p *OrderEventProducer) Close() error {
	p.logger.Info("closing kafka writer", zap.String("topic", p.topic))
	return p.writer.Close()
}
