package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrDuplicateSession = errors.New("order already exists for checkout session")
	ErrNotFound         = gorm.ErrRecordNotFound
)

// Store is the relational store the services work against. Repositories
// returned from a Store passed into Transaction share that transaction.
type Store interface {
	Orders() OrderRepository
	Variants() VariantRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GormStore implements Store on top of a *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Orders() OrderRepository {
	return NewGormOrderRepository(s.db)
}

func (s *GormStore) Variants() VariantRepository {
	return NewGormVariantRepository(s.db)
}

// Transaction runs fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
