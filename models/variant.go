package models

import "time"

// Variant is a purchasable size of an item together with its stock count.
// Stock is shared with restocking flows and is only ever changed with
// conditional, single-statement updates.
type Variant struct {
	ItemID    string    `gorm:"type:varchar(255);primaryKey" json:"item_id"`
	Size      string    `gorm:"type:varchar(32);primaryKey" json:"size"`
	Stock     int       `gorm:"not null;check:stock >= 0" json:"stock"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RestockRequest is the payload for POST /admin/variants/restock.
type RestockRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}
