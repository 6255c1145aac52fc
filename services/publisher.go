package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/order-ingestion-service/models"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
)

// OrderEventPublisher announces committed orders to the rest of the system.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, evt models.OrderCreatedEvent) error
}

// PayloadArchiver keeps a copy of raw confirmation payloads.
type PayloadArchiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// SNSOrderEventPublisher publishes order events to one SNS topic.
type SNSOrderEventPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSOrderEventPublisher(client awspkg.SNSPublisher, topicArn string) *SNSOrderEventPublisher {
	return &SNSOrderEventPublisher{client: client, topicArn: topicArn}
}

func (p *SNSOrderEventPublisher) PublishOrderCreated(ctx context.Context, evt models.OrderCreatedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, data)
}
