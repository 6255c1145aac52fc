package services

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/order-ingestion-service/models"
	"go.uber.org/zap"
)

// Stripe event types that carry a finalized checkout session.
const (
	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Ingester is implemented by IngestionService.
type Ingester interface {
	Ingest(ctx context.Context, c *models.PaymentConfirmation) (*models.Order, error)
}

// CheckoutEventHandler feeds Stripe checkout events into ingestion. It is
// shared by the webhook endpoint and the SQS consumer.
type CheckoutEventHandler struct {
	ingester Ingester
	logger   *zap.Logger
}

func NewCheckoutEventHandler(ingester Ingester, logger *zap.Logger) *CheckoutEventHandler {
	return &CheckoutEventHandler{ingester: ingester, logger: logger}
}

// HandleEvent ingests the checkout session carried by event. It returns a
// nil order and nil error for events that do not describe a paid checkout.
func (h *CheckoutEventHandler) HandleEvent(ctx context.Context, event stripe.Event) (*models.Order, error) {
	confirmation, ok, err := ConfirmationFromEvent(event)
	if err != nil {
		return nil, err
	}
	if !ok {
		h.logger.Info("ignoring stripe event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return nil, nil
	}
	return h.ingester.Ingest(ctx, confirmation)
}

// ConfirmationFromEvent extracts a PaymentConfirmation from a checkout
// session event. ok is false for other event types and for sessions that
// are not paid yet.
func ConfirmationFromEvent(event stripe.Event) (*models.PaymentConfirmation, bool, error) {
	switch event.Type {
	case EventCheckoutSessionCompleted, EventCheckoutSessionAsyncPaymentSucceeded:
	default:
		return nil, false, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, false, malformed("event %s has no data", event.ID)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, false, malformed("event %s: decode checkout session: %v", event.ID, err)
	}

	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
	default:
		return nil, false, nil
	}

	return confirmationFromSession(&sess, event.Data.Raw), true, nil
}

func confirmationFromSession(sess *stripe.CheckoutSession, raw []byte) *models.PaymentConfirmation {
	md := models.ParseConfirmationMetadata(sess.Metadata)
	if sess.CustomerDetails != nil {
		if md.CustomerName == "" {
			md.CustomerName = sess.CustomerDetails.Name
		}
		if md.CustomerEmail == "" {
			md.CustomerEmail = sess.CustomerDetails.Email
		}
	}

	c := &models.PaymentConfirmation{
		SessionID:   sess.ID,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
		Metadata:    md,
		RawPayload:  raw,
	}
	if sess.PaymentIntent != nil {
		c.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.Customer != nil {
		c.CustomerID = sess.Customer.ID
	}
	if sess.TotalDetails != nil {
		c.AmountDiscount = sess.TotalDetails.AmountDiscount
	}
	return c
}
