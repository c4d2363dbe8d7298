package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment methods. Credit is only valid for direct sales.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCard     = "card"
	PaymentMethodCredit   = "credit"
)

// Sale is a direct over-the-counter sale of products
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	SoldAt        time.Time       `gorm:"not null;index" json:"sold_at"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;index" json:"payment_method"`
	Paid          bool            `gorm:"not null;default:true" json:"paid"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.SoldAt.IsZero() {
		s.SoldAt = time.Now()
	}
	return nil
}

// Recalculate sets Total from Subtotal and Discount, never below zero.
func (s *Sale) Recalculate() {
	s.Total = s.Subtotal.Sub(s.Discount)
	if s.Total.IsNegative() {
		s.Total = decimal.Zero
	}
}

// SaleItem is one product line of a direct sale
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	i.Subtotal = i.Quantity.Mul(i.UnitPrice).Round(2)
	return nil
}

// IsValidPaymentMethod reports whether m can settle a payment. Credit is
// accepted only when allowCredit is set.
func IsValidPaymentMethod(m string, allowCredit bool) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard:
		return true
	case PaymentMethodCredit:
		return allowCredit
	}
	return false
}
