package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClientCategory enum constants
const (
	ClientCategoryIndividual = "individual"
	ClientCategoryBusiness   = "business"
	ClientCategoryWholesale  = "wholesale"
)

// Client is a customer of the shop. Clients are never hard-deleted; Active=false hides them.
type Client struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Phone           string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Email           *string         `gorm:"type:varchar(255);uniqueIndex" json:"email"` // NULL when absent so the unique index ignores it
	Address         string          `gorm:"type:text" json:"address"`
	Category        string          `gorm:"type:varchar(20);not null;default:'individual';index" json:"category"`
	SpecialDiscount decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"special_discount"` // percentage
	Active          bool            `gorm:"not null;default:true;index" json:"active"`
	Notes           string          `gorm:"type:text" json:"notes"`
	RegisteredAt    time.Time       `gorm:"not null;index" json:"registered_at"`
	LastPurchaseAt  *time.Time      `json:"last_purchase_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = time.Now()
	}
	return nil
}

// EmailValue returns the email or "" when unset.
func (c *Client) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// HasDiscount reports whether the client carries a special discount.
func (c *Client) HasDiscount() bool {
	return c.SpecialDiscount.IsPositive()
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// IsValidClientCategory reports whether c is a known client category.
func IsValidClientCategory(c string) bool {
	return c == ClientCategoryIndividual || c == ClientCategoryBusiness || c == ClientCategoryWholesale
}
