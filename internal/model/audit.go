package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateClient     = "CREATE_CLIENT"
	ActionUpdateClient     = "UPDATE_CLIENT"
	ActionDeactivateClient = "DEACTIVATE_CLIENT"
	ActionCreateCategory   = "CREATE_CATEGORY"
	ActionUpdateCategory   = "UPDATE_CATEGORY"
	ActionCreateProduct    = "CREATE_PRODUCT"
	ActionUpdateProduct    = "UPDATE_PRODUCT"
	ActionImportProducts   = "IMPORT_PRODUCTS"
	ActionAdjustStock      = "ADJUST_STOCK"
	ActionPurchaseEntry    = "PURCHASE_ENTRY"
	ActionReturnStock      = "RETURN_STOCK"
	ActionCreateOrder      = "CREATE_ORDER"
	ActionUpdateOrder      = "UPDATE_ORDER"
	ActionChangeStatus     = "CHANGE_ORDER_STATUS"
	ActionUploadDesign     = "UPLOAD_ORDER_DESIGN"
	ActionRecordPayment    = "RECORD_PAYMENT"
	ActionCreateSale       = "CREATE_SALE"
	ActionAddSaleItem      = "ADD_SALE_ITEM"
	ActionCreateUser       = "CREATE_USER"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeleteUser       = "DELETE_USER"
)

// AuditLog tracks who changed what and when
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
