package repository

import (
	"context"
	"fmt"
	"time"

	"dotaciones/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TimedAmount is one dated money row used for period bucketing.
type TimedAmount struct {
	At     time.Time
	Amount decimal.Decimal
}

// OrderTotals sums money over non-cancelled orders.
type OrderTotals struct {
	Count     int64
	Billed    decimal.Decimal
	Collected decimal.Decimal
}

// OrderCountFilter selects orders for dashboard counters.
type OrderCountFilter struct {
	Statuses      []string
	OrderedFrom   *time.Time
	PromisedFrom  *time.Time
	PromisedUntil *time.Time
}

type StatisticsRepository interface {
	SumSales(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	SumPayments(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	PendingBalance(ctx context.Context) (decimal.Decimal, error)
	OrderTotals(ctx context.Context) (*OrderTotals, error)
	CountOrders(ctx context.Context, filter OrderCountFilter) (int64, error)
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]model.ProductRanking, error)
	SalesSince(ctx context.Context, since time.Time) ([]TimedAmount, error)
	PaymentsSince(ctx context.Context, since time.Time) ([]TimedAmount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) sum(db *gorm.DB, expr string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := db.Select("COALESCE(SUM(" + expr + "), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

func (r *statisticsRepository) SumSales(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db).Model(&model.Sale{}).Where("sold_at >= ? AND sold_at < ?", start, end)
	return r.sum(db, "total")
}

func (r *statisticsRepository) SumPayments(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db).Model(&model.Payment{}).Where("paid_at >= ? AND paid_at < ?", start, end)
	return r.sum(db, "amount")
}

func (r *statisticsRepository) PendingBalance(ctx context.Context) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db).Model(&model.Order{}).Where("status <> ?", model.OrderStatusCancelled)
	return r.sum(db, "total_price - advance_paid")
}

func (r *statisticsRepository) OrderTotals(ctx context.Context) (*OrderTotals, error) {
	var totals OrderTotals
	row := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("status <> ?", model.OrderStatusCancelled).
		Select("COUNT(*), COALESCE(SUM(total_price), 0), COALESCE(SUM(advance_paid), 0)").
		Row()
	if err := row.Scan(&totals.Count, &totals.Billed, &totals.Collected); err != nil {
		return nil, fmt.Errorf("failed to sum orders: %w", err)
	}
	totals.Billed = totals.Billed.Round(2)
	totals.Collected = totals.Collected.Round(2)
	return &totals, nil
}

func (r *statisticsRepository) CountOrders(ctx context.Context, filter OrderCountFilter) (int64, error) {
	var total int64
	db := GetDB(ctx, r.db).Model(&model.Order{})
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.OrderedFrom != nil {
		db = db.Where("ordered_at >= ?", *filter.OrderedFrom)
	}
	if filter.PromisedFrom != nil {
		db = db.Where("promised_delivery_at >= ?", *filter.PromisedFrom)
	}
	if filter.PromisedUntil != nil {
		db = db.Where("promised_delivery_at < ?", *filter.PromisedUntil)
	}
	err := db.Count(&total).Error
	return total, err
}

func (r *statisticsRepository) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *statisticsRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	if err := GetDB(ctx, r.db).Table("sale_items").
		Select("products.id as product_id, products.name as product_name, COALESCE(categories.name, '') as category, "+
			"SUM(sale_items.quantity) as quantity_sold, SUM(sale_items.subtotal) as total_sold, "+
			"SUM((products.sale_price - products.purchase_price) * sale_items.quantity) as profit").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("sales.sold_at >= ?", since).
		Group("products.id, products.name, categories.name").
		Order("total_sold DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	for i := range rankings {
		rankings[i].QuantitySold = rankings[i].QuantitySold.Round(2)
		rankings[i].TotalSold = rankings[i].TotalSold.Round(2)
		rankings[i].Profit = rankings[i].Profit.Round(2)
	}
	return rankings, nil
}

func (r *statisticsRepository) SalesSince(ctx context.Context, since time.Time) ([]TimedAmount, error) {
	var rows []TimedAmount
	err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("sold_at as at, total as amount").
		Where("sold_at >= ?", since).
		Order("sold_at asc").
		Scan(&rows).Error
	return rows, err
}

func (r *statisticsRepository) PaymentsSince(ctx context.Context, since time.Time) ([]TimedAmount, error) {
	var rows []TimedAmount
	err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("paid_at as at, amount").
		Where("paid_at >= ?", since).
		Order("paid_at asc").
		Scan(&rows).Error
	return rows, err
}
