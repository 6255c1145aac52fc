package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/yashrajoria/order-ingestion-service/models"
	"github.com/yashrajoria/order-ingestion-service/repository"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	// keeps (page-1)*limit inside an int32 offset
	maxPage = math.MaxInt32/maxPageLimit + 1
)

var ErrVariantNotFound = errors.New("variant not found")

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService serves reads and admin operations over ingested orders.
type OrderService struct {
	store  repository.Store
	cache  repository.OrderCache
	logger *zap.Logger
}

// NewOrderService creates an OrderService. cache may be nil.
func NewOrderService(store repository.Store, cache repository.OrderCache, logger *zap.Logger) *OrderService {
	return &OrderService{store: store, cache: cache, logger: logger}
}

// GetOrder returns an order by number, reading through the cache.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error) {
	if s.cache != nil {
		order, err := s.cache.Get(ctx, orderNumber)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("order cache read failed", zap.String("order_number", orderNumber.String()), zap.Error(err))
		}
	}

	order, err := s.store.Orders().FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: find order %s: %w", ErrStorage, orderNumber, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, order); err != nil {
			s.logger.Warn("order cache write failed", zap.String("order_number", orderNumber.String()), zap.Error(err))
		}
	}
	return order, nil
}

// GetUserOrder returns the order only if it belongs to storeUserID. Orders
// of other users are reported as not found.
func (s *OrderService) GetUserOrder(ctx context.Context, storeUserID string, orderNumber uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.StoreUserID != storeUserID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders returns a page of storeUserID's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, storeUserID string, page, limit int) (*OrderResponse, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.store.Orders().FindByUserID(ctx, storeUserID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders for user %s: %w", ErrStorage, storeUserID, err)
	}
	return buildOrderResponse(orders, total, page, limit), nil
}

// ListAllOrders returns a page of all orders, newest first.
func (s *OrderService) ListAllOrders(ctx context.Context, page, limit int) (*OrderResponse, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.store.Orders().FindAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrStorage, err)
	}
	return buildOrderResponse(orders, total, page, limit), nil
}

// DeleteOrder removes an order and its items, then drops the cached copy.
// A failed invalidation is logged; the cache TTL bounds how long a deleted
// order can still be served.
func (s *OrderService) DeleteOrder(ctx context.Context, orderNumber uuid.UUID) error {
	if err := s.store.Orders().Delete(ctx, orderNumber); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("%w: delete order %s: %w", ErrStorage, orderNumber, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, orderNumber); err != nil {
			s.logger.Error("order cache invalidation failed", zap.String("order_number", orderNumber.String()), zap.Error(err))
		}
	}
	s.logger.Info("order deleted", zap.String("order_number", orderNumber.String()))
	return nil
}

// Restock adds quantity to a variant's stock with an atomic increment and
// returns the updated variant.
func (s *OrderService) Restock(ctx context.Context, req models.RestockRequest) (*models.Variant, error) {
	if req.ItemID == "" || req.Size == "" || req.Quantity <= 0 {
		return nil, malformed("restock needs item_id, size and a positive quantity")
	}
	if err := s.store.Variants().Restock(ctx, req.ItemID, req.Size, req.Quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("%w: restock %s/%s: %w", ErrStorage, req.ItemID, req.Size, err)
	}

	v, err := s.store.Variants().Find(ctx, req.ItemID, req.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: read variant %s/%s: %w", ErrStorage, req.ItemID, req.Size, err)
	}
	s.logger.Info("variant restocked",
		zap.String("item_id", req.ItemID),
		zap.String("size", req.Size),
		zap.Int("added", req.Quantity),
		zap.Int("stock", v.Stock),
	)
	return v, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page > maxPage {
		page = maxPage
	}
	return page, limit
}

func buildOrderResponse(orders []models.Order, total int64, page, limit int) *OrderResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	totalPages := (total + int64(limit) - 1) / int64(limit)
	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages,
			HasMore:     int64(page) < totalPages,
		},
	}
}
