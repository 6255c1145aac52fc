package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// Order is created once per Stripe checkout session and never updated by ingestion.
type Order struct {
	OrderNumber             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"order_number"`
	StripeCheckoutSessionID string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_checkout_session_id"`
	StripePaymentIntentID   string          `gorm:"type:varchar(255)" json:"stripe_payment_intent_id"`
	StripeCustomerID        string          `gorm:"column:stripe_customer_id;type:varchar(255)" json:"stripe_customer_id"`
	StoreUserID             string          `gorm:"type:varchar(255);not null;index" json:"store_user_id"`
	CustomerName            string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail           string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	TotalPrice              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	AmountDiscounted        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_discounted"`
	Currency                Currency        `gorm:"type:varchar(3);not null" json:"currency"`
	OrderStatus             OrderStatus     `gorm:"type:varchar(20);not null;index" json:"order_status"`
	PromoCodeID             *string         `gorm:"type:varchar(255)" json:"promo_code_id,omitempty"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
	OrderItems              []OrderItem     `gorm:"foreignKey:OrderID;references:OrderNumber;constraint:OnDelete:CASCADE" json:"order_items"`
}

// OrderItem snapshots the purchased variant and the unit price paid at checkout.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID    string          `gorm:"type:varchar(255);not null" json:"item_id"`
	Size      string          `gorm:"type:varchar(32);not null" json:"size"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

// OrderCreatedEvent is published after an order has been committed.
type OrderCreatedEvent struct {
	EventType               string           `json:"event_type"`
	OrderNumber             string           `json:"order_number"`
	StripeCheckoutSessionID string           `json:"stripe_checkout_session_id"`
	StoreUserID             string           `json:"store_user_id"`
	TotalPrice              decimal.Decimal  `json:"total_price"`
	Currency                Currency         `json:"currency"`
	Items                   []OrderEventItem `json:"items"`
	Timestamp               time.Time        `json:"timestamp"`
}

type OrderEventItem struct {
	ItemID    string          `json:"item_id"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderCreatedEvent builds the outbound event for a committed order.
func NewOrderCreatedEvent(order *Order, at time.Time) OrderCreatedEvent {
	items := make([]OrderEventItem, 0, len(order.OrderItems))
	for _, it := range order.OrderItems {
		items = append(items, OrderEventItem{
			ItemID:    it.ItemID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return OrderCreatedEvent{
		EventType:               "order.created",
		OrderNumber:             order.OrderNumber.String(),
		StripeCheckoutSessionID: order.StripeCheckoutSessionID,
		StoreUserID:             order.StoreUserID,
		TotalPrice:              order.TotalPrice,
		Currency:                order.Currency,
		Items:                   items,
		Timestamp:               at.UTC(),
	}
}
