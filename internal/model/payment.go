package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is money received against an order
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order     *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(20);not null" json:"method"`
	Concept   string          `gorm:"type:varchar(200);not null" json:"concept"`
	Notes     string          `gorm:"type:text" json:"notes"`
	PaidAt    time.Time       `gorm:"not null;index" json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	return nil
}
