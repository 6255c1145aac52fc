package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/order-ingestion-service/models"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"go.uber.org/zap"
)

// EventHandler is implemented by CheckoutEventHandler.
type EventHandler interface {
	HandleEvent(ctx context.Context, event stripe.Event) (*models.Order, error)
}

// SQSCheckoutConsumer ingests Stripe checkout events delivered through SQS,
// either directly, through an SNS subscription or from an EventBridge rule.
// Every failure is returned so the message is redelivered and, once the
// queue's redrive policy gives up, dead-lettered.
type SQSCheckoutConsumer struct {
	consumer *awspkg.SQSConsumer
	handler  EventHandler
	logger   *zap.Logger
	cw       *awspkg.MetricsClient
}

func NewSQSCheckoutConsumer(consumer *awspkg.SQSConsumer, handler EventHandler, logger *zap.Logger) *SQSCheckoutConsumer {
	return &SQSCheckoutConsumer{consumer: consumer, handler: handler, logger: logger}
}

// WithMetrics counts processed messages in CloudWatch by result.
func (c *SQSCheckoutConsumer) WithMetrics(cw *awspkg.MetricsClient) *SQSCheckoutConsumer {
	c.cw = cw
	return c
}

// Start blocks polling the queue until ctx is cancelled.
func (c *SQSCheckoutConsumer) Start(ctx context.Context) {
	c.logger.Info("starting checkout events consumer")
	err := c.consumer.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("checkout events consumer stopped", zap.Error(err))
	}
}

// HandleMessage decodes one queue message and ingests the event it carries.
func (c *SQSCheckoutConsumer) HandleMessage(ctx context.Context, body string) (err error) {
	defer func() {
		if !c.cw.IsEnabled() {
			return
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		_ = c.cw.RecordCount(context.WithoutCancel(ctx), awspkg.MetricSQSMessages, map[string]string{"Queue": "checkout-events", "Result": result})
	}()

	event, err := DecodeQueuedEvent([]byte(body))
	if err != nil {
		return err
	}

	order, err := c.handler.HandleEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("event %s: %w", event.ID, err)
	}
	if order != nil {
		c.logger.Info("checkout event ingested from queue",
			zap.String("event_id", event.ID),
			zap.String("order_number", order.OrderNumber.String()),
		)
	}
	return nil
}

type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

type eventBridgeEnvelope struct {
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// DecodeQueuedEvent unwraps SNS and EventBridge envelopes and decodes the
// Stripe event inside.
func DecodeQueuedEvent(body []byte) (stripe.Event, error) {
	var event stripe.Event

	var sns snsEnvelope
	if err := json.Unmarshal(body, &sns); err == nil && sns.Type == "Notification" && sns.Message != "" {
		body = []byte(sns.Message)
	}

	var eb eventBridgeEnvelope
	if err := json.Unmarshal(body, &eb); err == nil && eb.DetailType != "" && len(eb.Detail) > 0 {
		body = eb.Detail
	}

	if err := json.Unmarshal(body, &event); err != nil {
		return event, malformed("decode queued stripe event: %v", err)
	}
	if event.ID == "" || event.Type == "" {
		return event, malformed("queued message is not a stripe event")
	}
	return event, nil
}
