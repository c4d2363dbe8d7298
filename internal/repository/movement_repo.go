package repository

import (
	"context"
	"time"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter narrows the stock movement log.
type MovementFilter struct {
	ProductID *uuid.UUID
	Type      string
	From      *time.Time
	Page      int
	Limit     int
}

type MovementRepository interface {
	Create(ctx context.Context, movement *model.InventoryMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movement *model.InventoryMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *movementRepository) List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error) {
	var movements []model.InventoryMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryMovement{})
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Product").Order("created_at desc").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *movementRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.InventoryMovement{}).Where("product_id = ?", productID).Count(&total).Error
	return total, err
}
