package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types
const (
	MovementIn         = "in"
	MovementOutSale    = "out_sale"
	MovementOutOrder   = "out_order"
	MovementAdjustment = "adjustment"
	MovementReturn     = "return"
)

// InventoryMovement records every stock change with a before/after snapshot.
// Rows are append-only.
type InventoryMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Type           string          `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	QuantityBefore decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity_before"`
	QuantityAfter  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity_after"`
	Reason         string          `gorm:"type:varchar(200);not null" json:"reason"`
	SaleID         *uuid.UUID      `gorm:"type:uuid;index" json:"sale_id"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	PerformedBy    string          `gorm:"type:varchar(100);not null" json:"performed_by"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

func (m *InventoryMovement) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// IsOutbound reports whether the movement removed stock.
func (m *InventoryMovement) IsOutbound() bool {
	return m.Type == MovementOutSale || m.Type == MovementOutOrder
}

// IsValidMovementType reports whether t is a known movement type.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementIn, MovementOutSale, MovementOutOrder, MovementAdjustment, MovementReturn:
		return true
	}
	return false
}
