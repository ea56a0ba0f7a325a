package model

import (
	"time"
)

// Actions recorded in the activity log.
const (
	ActionDeactivate = "DEACTIVATE"
	ActionReactivate = "REACTIVATE"
)

// Methods describing what triggered a logged action.
const (
	MethodManual  = "MANUAL"
	MethodAuto    = "AUTO"
	MethodWebhook = "WEBHOOK"
)

// ActivityLog is an append-only audit record of a single successful product
// state transition. Failed mutation attempts produce no entry. Rows are never
// updated; they are deleted only by a shop-initiated history clear.
type ActivityLog struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Shop         string    `json:"shop" gorm:"type:varchar(255);index;not null"`
	ProductID    string    `json:"product_id" gorm:"type:varchar(255);not null"`
	ProductTitle string    `json:"product_title" gorm:"type:varchar(255)"`
	ProductSKU   *string   `json:"product_sku" gorm:"type:varchar(100)"`
	Action       string    `json:"action" gorm:"type:varchar(20);not null"`
	Method       string    `json:"method" gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}
