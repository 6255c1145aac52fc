package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/order-ingestion-service/models"
)

// StripeGateway implements Gateway against the Stripe API and verifies
// Stripe webhook signatures.
type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
}

func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	return NewStripeGatewayWithBackend(stripe.GetBackend(stripe.APIBackend), apiKey, webhookSecret)
}

// NewStripeGatewayWithBackend is NewStripeGateway with an explicit backend,
// e.g. one pointed at stripe-mock.
func NewStripeGatewayWithBackend(backend stripe.Backend, apiKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		sessions:      session.Client{B: backend, Key: apiKey},
		webhookSecret: webhookSecret,
	}
}

// ListLineItems pages through the session's line items with their prices
// and products expanded, so the SKU metadata is available.
func (g *StripeGateway) ListLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.price.product")

	var items []models.LineItem
	iter := g.sessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, toLineItem(iter.LineItem()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list line items: %w", err)
	}
	return items, nil
}

// ParseWebhook verifies the Stripe-Signature header against payload.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// toLineItem maps a Stripe line item onto the typed gateway boundary. A
// missing quantity reads as 1.
func toLineItem(li *stripe.LineItem) models.LineItem {
	out := models.LineItem{
		ProductName: li.Description,
		Quantity:    li.Quantity,
		Currency:    string(li.Currency),
	}
	if out.Quantity == 0 {
		out.Quantity = 1
	}
	if li.Price == nil {
		return out
	}
	out.PriceID = li.Price.ID
	out.UnitAmount = li.Price.UnitAmount
	if li.Price.Product != nil {
		out.SKU = models.ParseSKUMetadata(li.Price.Product.Metadata)
		if li.Price.Product.Name != "" {
			out.ProductName = li.Price.Product.Name
		}
	}
	return out
}
