package repository

import (
	"context"
	"time"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	OrderID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Omit("Order").Create(payment).Error
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Payment{})
	if filter.OrderID != nil {
		db = db.Where("order_id = ?", *filter.OrderID)
	}
	if filter.From != nil {
		db = db.Where("paid_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("paid_at < ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Order").Preload("Order.Client").
		Order("paid_at desc").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("paid_at asc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
