package repository

import (
	"context"
	"time"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	Statuses       []string
	ClientID       *uuid.UUID
	From           *time.Time
	To             *time.Time
	PendingPayment bool
	Page           int
	Limit          int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItem(ctx context.Context, item *model.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateDetails(ctx context.Context, order *model.Order) error
	SetDesignFile(ctx context.Context, id uuid.UUID, path string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, actualDelivery *time.Time) error
	AddAdvance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Order, error)
	FindByIDsWithStatus(ctx context.Context, ids []uuid.UUID, status string) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit("Items", "Payments", "Client").Create(order).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Omit("Product").Create(item).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Preload("Client").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Items").
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at asc") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateDetails writes the editable descriptive fields. Status and advance are
// owned by UpdateStatus and AddAdvance; the total may not drop below the
// advance already paid, checked in the same statement.
func (r *orderRepository) UpdateDetails(ctx context.Context, order *model.Order) error {
	res := GetDB(ctx, r.db).Model(order).
		Where("ROUND((? - advance_paid) * 100) >= 0", order.TotalPrice).
		Select("description", "specifications", "embroidery_type", "promised_delivery_at",
			"estimated_hours", "actual_hours", "internal_notes", "total_price").
		Updates(order)
	return guardedUpdate(res)
}

func (r *orderRepository) SetDesignFile(ctx context.Context, id uuid.UUID, path string) error {
	return guardedUpdate(GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("design_file", path))
}

// UpdateStatus moves an order from one status to another only if it is still in
// the expected status.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, actualDelivery *time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":             to,
			"actual_delivery_at": actualDelivery,
		})
	return guardedUpdate(res)
}

// AddAdvance accrues a payment in one guarded statement: it matches nothing when
// the amount would exceed the total or the order is cancelled. Amounts are
// compared in whole cents, the same way DecrementStock compares quantities.
func (r *orderRepository) AddAdvance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status <> ? AND ROUND((total_price - advance_paid - ?) * 100) >= 0", id, model.OrderStatusCancelled, amount).
		Update("advance_paid", gorm.Expr("ROUND(advance_paid + ?, 2)", amount))
	return guardedUpdate(res)
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}
	if filter.From != nil {
		db = db.Where("ordered_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("ordered_at < ?", *filter.To)
	}
	if filter.PendingPayment {
		db = db.Where("ROUND((total_price - advance_paid) * 100) > 0 AND status <> ?", model.OrderStatusCancelled)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Client").
		Order("ordered_at desc").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).Where("client_id = ?", clientID).Order("ordered_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) FindByIDsWithStatus(ctx context.Context, ids []uuid.UUID, status string) ([]model.Order, error) {
	var orders []model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ? AND status = ?", ids, status).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
