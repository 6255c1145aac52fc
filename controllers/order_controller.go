package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/order-ingestion-service/middleware"
	"github.com/yashrajoria/order-ingestion-service/models"
	"github.com/yashrajoria/order-ingestion-service/pkg/apperrors"
	"github.com/yashrajoria/order-ingestion-service/services"
	"go.uber.org/zap"
)

// OrderReader is implemented by services.OrderService.
type OrderReader interface {
	GetUserOrder(ctx context.Context, storeUserID string, orderNumber uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, storeUserID string, page, limit int) (*services.OrderResponse, error)
	ListAllOrders(ctx context.Context, page, limit int) (*services.OrderResponse, error)
	DeleteOrder(ctx context.Context, orderNumber uuid.UUID) error
	Restock(ctx context.Context, req models.RestockRequest) (*models.Variant, error)
}

type OrderController struct {
	orderService OrderReader
	logger       *zap.Logger
}

func NewOrderController(orderService OrderReader, logger *zap.Logger) *OrderController {
	return &OrderController{orderService: orderService, logger: logger}
}

// GetOrders returns paginated orders for the authenticated user
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		_ = ctx.Error(apperrors.Unauthorized("Unauthorized"))
		return
	}

	page, limit := parsePaginationParams(ctx)
	result, err := oc.orderService.ListUserOrders(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		oc.logger.Error("failed to fetch user orders", zap.String("user_id", userID), zap.Error(err))
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetOrderByNumber returns one of the authenticated user's orders
func (oc *OrderController) GetOrderByNumber(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		_ = ctx.Error(apperrors.Unauthorized("Unauthorized"))
		return
	}

	orderNumber, err := uuid.Parse(ctx.Param("orderNumber"))
	if err != nil {
		_ = ctx.Error(apperrors.BadRequest("Invalid order number format", err))
		return
	}

	order, err := oc.orderService.GetUserOrder(ctx.Request.Context(), userID, orderNumber)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// GetAllOrders returns paginated orders for all users (admin only)
func (oc *OrderController) GetAllOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	result, err := oc.orderService.ListAllOrders(ctx.Request.Context(), page, limit)
	if err != nil {
		oc.logger.Error("failed to fetch orders", zap.Error(err))
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (oc *OrderController) DeleteOrder(ctx *gin.Context) {
	orderNumber, err := uuid.Parse(ctx.Param("orderNumber"))
	if err != nil {
		_ = ctx.Error(apperrors.BadRequest("Invalid order number format", err))
		return
	}

	if err := oc.orderService.DeleteOrder(ctx.Request.Context(), orderNumber); err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (oc *OrderController) Restock(ctx *gin.Context) {
	var req models.RestockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(apperrors.BadRequest("Invalid request", err))
		return
	}

	variant, err := oc.orderService.Restock(ctx.Request.Context(), req)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}
