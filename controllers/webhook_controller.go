package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/order-ingestion-service/models"
	"github.com/yashrajoria/order-ingestion-service/pkg/apperrors"
	"go.uber.org/zap"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBodyBytes = int64(65536)

type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}

type EventHandler interface {
	HandleEvent(ctx context.Context, event stripe.Event) (*models.Order, error)
}

type WebhookController struct {
	verifier WebhookVerifier
	handler  EventHandler
	logger   *zap.Logger
}

func NewWebhookController(verifier WebhookVerifier, handler EventHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{verifier: verifier, handler: handler, logger: logger}
}

// HandleStripeWebhook verifies and ingests one Stripe event.
func (wc *WebhookController) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(apperrors.BadRequest("Unreadable request body", err))
		return
	}

	event, err := wc.verifier.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		wc.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		_ = c.Error(apperrors.BadRequest("Invalid signature", err))
		return
	}

	order, err := wc.handler.HandleEvent(c.Request.Context(), event)
	if err != nil {
		wc.logger.Error("stripe webhook ingestion failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		_ = c.Error(toAppError(err))
		return
	}

	if order == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "order_number": order.OrderNumber})
}
