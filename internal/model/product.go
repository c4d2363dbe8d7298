package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products (thread, fabric, tools...)
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product represents an item in the inventory. Quantities are decimals because
// fabric and thread are sold by length.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(200);not null;index" json:"name"`
	CategoryID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category        *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Brand           string          `gorm:"type:varchar(100);index" json:"brand"`
	Color           string          `gorm:"type:varchar(50)" json:"color"`
	Supplier        string          `gorm:"type:varchar(200)" json:"supplier"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"current_quantity"`
	MinStock        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:5" json:"min_stock"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"purchase_price"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// NeedsRestock is true when stock is at or below the minimum threshold.
func (p *Product) NeedsRestock() bool {
	return p.CurrentQuantity.LessThanOrEqual(p.MinStock)
}

// InventoryValue is the stock valued at purchase price.
func (p *Product) InventoryValue() decimal.Decimal {
	return p.CurrentQuantity.Mul(p.PurchasePrice)
}

// UnitMargin is sale price minus purchase price.
func (p *Product) UnitMargin() decimal.Decimal {
	return p.SalePrice.Sub(p.PurchasePrice)
}

// MarginPercent is the margin relative to the purchase price.
func (p *Product) MarginPercent() decimal.Decimal {
	if !p.PurchasePrice.IsPositive() {
		return decimal.Zero
	}
	return p.UnitMargin().Div(p.PurchasePrice).Mul(decimal.NewFromInt(100)).Round(2)
}
