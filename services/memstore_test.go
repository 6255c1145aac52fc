package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yashrajoria/order-ingestion-service/models"
	"github.com/yashrajoria/order-ingestion-service/repository"
)

type variantKey struct{ itemID, size string }

type memState struct {
	orders   map[uuid.UUID]models.Order
	sessions map[string]uuid.UUID
	variants map[variantKey]int
}

func (s *memState) clone() *memState {
	c := &memState{
		orders:   make(map[uuid.UUID]models.Order, len(s.orders)),
		sessions: make(map[string]uuid.UUID, len(s.sessions)),
		variants: make(map[variantKey]int, len(s.variants)),
	}
	for k, v := range s.orders {
		v.OrderItems = append([]models.OrderItem(nil), v.OrderItems...)
		c.orders[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	return c
}

// memDB is an in-memory Store. Transactions are serialised and run against
// a copy of the state that is swapped in only on commit.
type memDB struct {
	mu    sync.Mutex
	state *memState

	transactions   atomic.Int32
	createItemErr  error
	decrementErr   error
	findSessionErr error
}

func newMemDB() *memDB {
	return &memDB{state: &memState{
		orders:   map[uuid.UUID]models.Order{},
		sessions: map[string]uuid.UUID{},
		variants: map[variantKey]int{},
	}}
}

func (db *memDB) store() *memStore { return &memStore{db: db} }

func (db *memDB) setStock(itemID, size string, stock int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.variants[variantKey{itemID, size}] = stock
}

func (db *memDB) stock(itemID, size string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.variants[variantKey{itemID, size}]
}

func (db *memDB) orderCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.orders)
}

func (db *memDB) hasSession(sessionID string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.state.sessions[sessionID]
	return ok
}

// memStore is a view of memDB; tx is non-nil inside a transaction.
type memStore struct {
	db *memDB
	tx *memState
}

func (s *memStore) Orders() repository.OrderRepository     { return &memOrders{s} }
func (s *memStore) Variants() repository.VariantRepository { return &memVariants{s} }

func (s *memStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.db.transactions.Add(1)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.state.clone()
	if err := fn(&memStore{db: s.db, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.state = work
	return nil
}

// with runs fn against the transaction state, or against the committed
// state under the lock when used outside a transaction.
func (s *memStore) with(fn func(st *memState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.state)
}

type memOrders struct{ s *memStore }

func (r *memOrders) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if err := r.s.db.findSessionErr; err != nil {
		return nil, err
	}
	var out *models.Order
	err := r.s.with(func(st *memState) error {
		id, ok := st.sessions[sessionID]
		if !ok {
			return repository.ErrNotFound
		}
		o := st.orders[id]
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) FindByOrderNumber(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := r.s.with(func(st *memState) error {
		o, ok := st.orders[orderNumber]
		if !ok {
			return repository.ErrNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) FindByUserID(ctx context.Context, storeUserID string, page, limit int) ([]models.Order, int64, error) {
	return r.page(func(o models.Order) bool { return o.StoreUserID == storeUserID }, page, limit)
}

func (r *memOrders) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return r.page(func(models.Order) bool { return true }, page, limit)
}

func (r *memOrders) page(match func(models.Order) bool, page, limit int) ([]models.Order, int64, error) {
	var all []models.Order
	_ = r.s.with(func(st *memState) error {
		for _, o := range st.orders {
			if match(o) {
				all = append(all, o)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memOrders) Create(ctx context.Context, order *models.Order) error {
	if order.OrderNumber == uuid.Nil {
		order.OrderNumber = uuid.New()
	}
	return r.s.with(func(st *memState) error {
		if _, ok := st.sessions[order.StripeCheckoutSessionID]; ok {
			return repository.ErrDuplicateSession
		}
		o := *order
		o.OrderItems = nil
		st.orders[o.OrderNumber] = o
		st.sessions[o.StripeCheckoutSessionID] = o.OrderNumber
		return nil
	})
}

func (r *memOrders) CreateItem(ctx context.Context, item *models.OrderItem) error {
	if err := r.s.db.createItemErr; err != nil {
		return err
	}
	return r.s.with(func(st *memState) error {
		o, ok := st.orders[item.OrderID]
		if !ok {
			return repository.ErrNotFound
		}
		o.OrderItems = append(o.OrderItems, *item)
		st.orders[item.OrderID] = o
		return nil
	})
}

func (r *memOrders) Delete(ctx context.Context, orderNumber uuid.UUID) error {
	return r.s.with(func(st *memState) error {
		o, ok := st.orders[orderNumber]
		if !ok {
			return repository.ErrNotFound
		}
		delete(st.orders, orderNumber)
		delete(st.sessions, o.StripeCheckoutSessionID)
		return nil
	})
}

type memVariants struct{ s *memStore }

func (r *memVariants) Find(ctx context.Context, itemID, size string) (*models.Variant, error) {
	var out *models.Variant
	err := r.s.with(func(st *memState) error {
		stock, ok := st.variants[variantKey{itemID, size}]
		if !ok {
			return repository.ErrNotFound
		}
		out = &models.Variant{ItemID: itemID, Size: size, Stock: stock}
		return nil
	})
	return out, err
}

func (r *memVariants) DecrementStock(ctx context.Context, itemID, size string, quantity int) (bool, error) {
	if err := r.s.db.decrementErr; err != nil {
		return false, err
	}
	var ok bool
	err := r.s.with(func(st *memState) error {
		k := variantKey{itemID, size}
		stock, exists := st.variants[k]
		if !exists || stock < quantity {
			return nil
		}
		st.variants[k] = stock - quantity
		ok = true
		return nil
	})
	return ok, err
}

func (r *memVariants) Restock(ctx context.Context, itemID, size string, quantity int) error {
	return r.s.with(func(st *memState) error {
		k := variantKey{itemID, size}
		if _, ok := st.variants[k]; !ok {
			return repository.ErrNotFound
		}
		st.variants[k] += quantity
		return nil
	})
}

// staleReadStore hides the first session lookup, reproducing a concurrent
// delivery that commits between our lookup and our insert.
type staleReadStore struct {
	*memStore
	hidden atomic.Bool
}

func (s *staleReadStore) Orders() repository.OrderRepository {
	return &staleOrders{OrderRepository: s.memStore.Orders(), parent: s}
}

type staleOrders struct {
	repository.OrderRepository
	parent *staleReadStore
}

func (r *staleOrders) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if r.parent.hidden.CompareAndSwap(false, true) {
		return nil, repository.ErrNotFound
	}
	return r.OrderRepository.FindBySessionID(ctx, sessionID)
}
