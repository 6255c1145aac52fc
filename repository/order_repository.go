package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/order-ingestion-service/models"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error)
	FindByUserID(ctx context.Context, storeUserID string, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	Create(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	Delete(ctx context.Context, orderNumber uuid.UUID) error
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// FindBySessionID retrieves the order created for a Stripe checkout session
func (r *GormOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("stripe_checkout_session_id = ?", sessionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber retrieves a specific order
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID retrieves orders for a specific store user with pagination
func (r *GormOrderRepository) FindByUserID(ctx context.Context, storeUserID string, page, limit int) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("store_user_id = ?", storeUserID)
	return paginate(query, page, limit)
}

// FindAll retrieves all orders with pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return paginate(r.db.WithContext(ctx).Model(&models.Order{}), page, limit)
}

func paginate(query *gorm.DB, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Session(&gorm.Session{}).
		Preload("OrderItems").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Create inserts the order row only; items are inserted with CreateItem.
// A violation of the unique session index is reported as ErrDuplicateSession.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.OrderNumber == uuid.Nil {
		order.OrderNumber = uuid.New()
	}
	err := r.db.WithContext(ctx).Omit("OrderItems").Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSession
	}
	return err
}

// CreateItem inserts a single order line
func (r *GormOrderRepository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Delete removes an order; its items go with it through the cascade.
func (r *GormOrderRepository) Delete(ctx context.Context, orderNumber uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Delete(&models.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
