package models

import "strings"

// Stripe checkout session metadata keys set by the storefront.
const (
	MetadataStoreUserID   = "storeUserId"
	MetadataCustomerName  = "customerName"
	MetadataCustomerEmail = "customerEmail"
	MetadataPromoCodeID   = "promoCodeId"

	SKUMetadataItemID = "itemId"
	SKUMetadataSize   = "size"
)

// PaymentConfirmation is a completed checkout as reported by the payment gateway.
type PaymentConfirmation struct {
	SessionID       string
	PaymentIntentID string
	CustomerID      string
	AmountTotal     int64 // minor units
	AmountDiscount  int64 // minor units
	Currency        string
	Metadata        ConfirmationMetadata
	RawPayload      []byte
}

// ConfirmationMetadata is the typed view of the session's free-form metadata.
type ConfirmationMetadata struct {
	StoreUserID   string
	CustomerName  string
	CustomerEmail string
	PromoCodeID   *string
}

// ParseConfirmationMetadata reads the known keys out of a metadata map.
// Missing optional keys are left empty; validation happens in the service.
func ParseConfirmationMetadata(m map[string]string) ConfirmationMetadata {
	md := ConfirmationMetadata{
		StoreUserID:   strings.TrimSpace(m[MetadataStoreUserID]),
		CustomerName:  m[MetadataCustomerName],
		CustomerEmail: m[MetadataCustomerEmail],
	}
	if promo := strings.TrimSpace(m[MetadataPromoCodeID]); promo != "" {
		md.PromoCodeID = &promo
	}
	return md
}

// LineItem is one priced line of a checkout session.
type LineItem struct {
	PriceID     string
	ProductName string
	SKU         SKUMetadata
	Quantity    int64
	UnitAmount  int64 // minor units
	Currency    string
}

// SKUMetadata identifies the variant a line item was bought as.
type SKUMetadata struct {
	ItemID string
	Size   string
}

// ParseSKUMetadata reads item id and size from Stripe product metadata.
func ParseSKUMetadata(m map[string]string) SKUMetadata {
	return SKUMetadata{
		ItemID: strings.TrimSpace(m[SKUMetadataItemID]),
		Size:   strings.TrimSpace(m[SKUMetadataSize]),
	}
}

// Valid reports whether both item id and size are present.
func (s SKUMetadata) Valid() bool {
	return s.ItemID != "" && s.Size != ""
}
