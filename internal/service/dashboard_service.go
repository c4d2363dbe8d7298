package service

import (
	"context"
	"fmt"
	"time"

	"dotaciones/internal/cache"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	summaryCacheKey   = "dashboard:summary"
	defaultReportDays = 30
	maxReportDays     = 365
	topProductsLimit  = 10
)

type DashboardService interface {
	Summary(ctx context.Context, refresh bool) (*model.DashboardSummary, error)
	TopProducts(ctx context.Context, days int) ([]model.ProductRanking, error)
	RevenueByPeriod(ctx context.Context, days int) ([]model.DailyRevenue, error)
}

type dashboardService struct {
	statsRepo   repository.StatisticsRepository
	productRepo repository.ProductRepository
	clientRepo  repository.ClientRepository
	cache       cache.Store
	ttl         time.Duration
	now         func() time.Time
}

func NewDashboardService(
	statsRepo repository.StatisticsRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	store cache.Store,
	ttl time.Duration,
) DashboardService {
	if store == nil {
		store = cache.Noop{}
	}
	return &dashboardService{
		statsRepo:   statsRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
		cache:       store,
		ttl:         ttl,
		now:         time.Now,
	}
}

func (s *dashboardService) Summary(ctx context.Context, refresh bool) (*model.DashboardSummary, error) {
	if !refresh {
		var cached model.DashboardSummary
		hit, err := s.cache.Get(ctx, summaryCacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("dashboard cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	now := s.now()
	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now.Add(time.Second)

	summary := &model.DashboardSummary{GeneratedAt: now}
	var err error
	if summary.RevenueToday, err = s.revenue(ctx, today, end); err != nil {
		return nil, err
	}
	if summary.RevenueWeek, err = s.revenue(ctx, weekStart, end); err != nil {
		return nil, err
	}
	if summary.RevenueMonth, err = s.revenue(ctx, monthStart, end); err != nil {
		return nil, err
	}
	if summary.PendingBalance, err = s.statsRepo.PendingBalance(ctx); err != nil {
		return nil, fmt.Errorf("failed to sum pending balance: %w", err)
	}
	if summary.LowStockProducts, err = s.productRepo.CountLowStock(ctx); err != nil {
		return nil, fmt.Errorf("failed to count low stock: %w", err)
	}
	if summary.OrdersInProgress, err = s.statsRepo.CountOrders(ctx, repository.OrderCountFilter{
		Statuses: []string{model.OrderStatusInProcess, model.OrderStatusFinished},
	}); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if summary.NewClientsThisMonth, err = s.clientRepo.Count(ctx, nil, &monthStart); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	if s.ttl > 0 {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.ttl); err != nil {
			log.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}
	return summary, nil
}

// revenue is direct sales plus order payments in [start, end).
func (s *dashboardService) revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	sales, err := s.statsRepo.SumSales(ctx, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum sales: %w", err)
	}
	payments, err := s.statsRepo.SumPayments(ctx, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sales.Add(payments), nil
}

func clampDays(days int) int {
	if days <= 0 {
		return defaultReportDays
	}
	if days > maxReportDays {
		return maxReportDays
	}
	return days
}

func (s *dashboardService) TopProducts(ctx context.Context, days int) ([]model.ProductRanking, error) {
	since := startOfDay(s.now()).AddDate(0, 0, -clampDays(days))
	rankings, err := s.statsRepo.TopProducts(ctx, since, topProductsLimit)
	if err != nil {
		return nil, err
	}
	if rankings == nil {
		rankings = []model.ProductRanking{}
	}
	return rankings, nil
}

// RevenueByPeriod returns one row per calendar day, oldest first, including
// days without revenue.
func (s *dashboardService) RevenueByPeriod(ctx context.Context, days int) ([]model.DailyRevenue, error) {
	days = clampDays(days)
	now := s.now()
	loc := now.Location()
	since := startOfDay(now).AddDate(0, 0, -(days - 1))

	sales, err := s.statsRepo.SalesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	payments, err := s.statsRepo.PaymentsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	rows := make([]model.DailyRevenue, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := since.AddDate(0, 0, i).Format("2006-01-02")
		rows[i] = model.DailyRevenue{Date: key, Sales: decimal.Zero, Services: decimal.Zero, Total: decimal.Zero}
		index[key] = i
	}

	for _, sale := range sales {
		if i, ok := index[sale.At.In(loc).Format("2006-01-02")]; ok {
			rows[i].Sales = rows[i].Sales.Add(sale.Amount)
		}
	}
	for _, payment := range payments {
		if i, ok := index[payment.At.In(loc).Format("2006-01-02")]; ok {
			rows[i].Services = rows[i].Services.Add(payment.Amount)
		}
	}
	for i := range rows {
		rows[i].Sales = rows[i].Sales.Round(2)
		rows[i].Services = rows[i].Services.Round(2)
		rows[i].Total = rows[i].Sales.Add(rows[i].Services)
	}
	return rows, nil
}
