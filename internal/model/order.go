package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Embroidery types
const (
	EmbroideryComputerized = "computerized"
	EmbroideryManual       = "manual"
	EmbroideryCombined     = "combined"
)

// Order represents an embroidery service order placed by a client
type Order struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client             *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	OrderedAt          time.Time       `gorm:"not null;index" json:"ordered_at"`
	PromisedDeliveryAt time.Time       `gorm:"not null;index" json:"promised_delivery_at"`
	ActualDeliveryAt   *time.Time      `json:"actual_delivery_at"`
	EmbroideryType     string          `gorm:"type:varchar(20);not null" json:"embroidery_type"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	Specifications     string          `gorm:"type:text" json:"specifications"`
	Status             string          `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	EstimatedHours     decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"estimated_hours"`
	ActualHours        decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"actual_hours"`
	TotalPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	AdvancePaid        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"advance_paid"`
	InternalNotes      string          `gorm:"type:text" json:"internal_notes"`
	DesignFile         string          `gorm:"type:varchar(500)" json:"design_file"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments           []Payment       `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now()
	}
	if o.Status == "" {
		o.Status = OrderStatusReceived
	}
	return nil
}

// PendingBalance is total price minus advance paid.
func (o *Order) PendingBalance() decimal.Decimal {
	return o.TotalPrice.Sub(o.AdvancePaid)
}

// IsFullyPaid holds when nothing is left to pay.
func (o *Order) IsFullyPaid() bool {
	return !o.PendingBalance().IsPositive()
}

// IsOverdue reports whether the promised date passed without delivery.
func (o *Order) IsOverdue(now time.Time) bool {
	if o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled {
		return false
	}
	return now.After(o.PromisedDeliveryAt)
}

// OrderItem is a material consumed by an order
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	i.Subtotal = i.Quantity.Mul(i.UnitPrice).Round(2)
	return nil
}

// IsValidEmbroideryType reports whether t is a known embroidery type.
func IsValidEmbroideryType(t string) bool {
	return t == EmbroideryComputerized || t == EmbroideryManual || t == EmbroideryCombined
}
