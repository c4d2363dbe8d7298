package repository

import (
	"context"
	"time"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleFilter narrows direct sale listings.
type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod string
	ClientID      *uuid.UUID
	Page          int
	Limit         int
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	UpdateTotals(ctx context.Context, sale *model.Sale) error
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit("Items", "Client").Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleItem) error {
	return GetDB(ctx, r.db).Omit("Product").Create(item).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Items.Product").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) UpdateTotals(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Model(sale).
		Select("subtotal", "discount", "total").
		Updates(sale).Error
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{})
	if filter.From != nil {
		db = db.Where("sold_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("sold_at < ?", *filter.To)
	}
	if filter.PaymentMethod != "" {
		db = db.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Client").
		Order("sold_at desc").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}
