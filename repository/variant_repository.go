package repository

import (
	"context"

	"github.com/yashrajoria/order-ingestion-service/models"
	"gorm.io/gorm"
)

// VariantRepository defines stock access for item sizes.
type VariantRepository interface {
	Find(ctx context.Context, itemID, size string) (*models.Variant, error)
	DecrementStock(ctx context.Context, itemID, size string, quantity int) (bool, error)
	Restock(ctx context.Context, itemID, size string, quantity int) error
}

// GormVariantRepository implements VariantRepository using GORM.
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository.
func NewGormVariantRepository(db *gorm.DB) VariantRepository {
	return &GormVariantRepository{db: db}
}

// Find retrieves a variant by item and size.
func (r *GormVariantRepository) Find(ctx context.Context, itemID, size string) (*models.Variant, error) {
	var v models.Variant
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND size = ?", itemID, size).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// DecrementStock takes quantity off the variant's stock in a single
// conditional update. It reports false when no row matched, i.e. the
// variant does not exist or holds less than quantity.
func (r *GormVariantRepository) DecrementStock(ctx context.Context, itemID, size string, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("item_id = ? AND size = ? AND stock >= ?", itemID, size, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Restock atomically increments the variant's stock.
func (r *GormVariantRepository) Restock(ctx context.Context, itemID, size string, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("item_id = ? AND size = ?", itemID, size).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
