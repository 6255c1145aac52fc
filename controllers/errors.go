package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/order-ingestion-service/pkg/apperrors"
	"github.com/yashrajoria/order-ingestion-service/services"
)

// toAppError maps service errors onto HTTP statuses. The webhook relies on
// every non-2xx status to make Stripe redeliver.
func toAppError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, services.ErrMalformedInput):
		return apperrors.BadRequest(err.Error(), err)
	case errors.Is(err, services.ErrOutOfStock):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, services.ErrOrderNotFound):
		return apperrors.NotFound("Order not found")
	case errors.Is(err, services.ErrVariantNotFound):
		return apperrors.NotFound("Variant not found")
	case errors.Is(err, services.ErrGateway):
		return apperrors.BadGateway("Payment gateway unavailable", err)
	default:
		return apperrors.Internal(err)
	}
}

func parsePaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	// OrderService clamps out-of-range values.
	return page, limit
}
