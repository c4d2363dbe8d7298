package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary is the headline numbers shown on the main screen
type DashboardSummary struct {
	RevenueToday        decimal.Decimal `json:"revenue_today"`
	RevenueWeek         decimal.Decimal `json:"revenue_week"`
	RevenueMonth        decimal.Decimal `json:"revenue_month"`
	PendingBalance      decimal.Decimal `json:"pending_balance"`
	LowStockProducts    int64           `json:"low_stock_products"`
	OrdersInProgress    int64           `json:"orders_in_progress"`
	NewClientsThisMonth int64           `json:"new_clients_this_month"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// ProductRanking is one row of the top-selling products report
type ProductRanking struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	TotalSold    decimal.Decimal `json:"total_sold"`
	Profit       decimal.Decimal `json:"profit"`
}

// DailyRevenue is revenue for one calendar day
type DailyRevenue struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	Sales    decimal.Decimal `json:"sales"`
	Services decimal.Decimal `json:"services"`
	Total    decimal.Decimal `json:"total"`
}

// OrdersDashboard aggregates the order pipeline
type OrdersDashboard struct {
	TotalOrders       int64            `json:"total_orders"`
	ActiveOrders      int64            `json:"active_orders"`
	OrdersThisMonth   int64            `json:"orders_this_month"`
	DueToday          int64            `json:"due_today"`
	DueThisWeek       int64            `json:"due_this_week"`
	DueWithin3Days    int64            `json:"due_within_3_days"`
	ByStatus          map[string]int64 `json:"by_status"`
	TotalBilled       decimal.Decimal  `json:"total_billed"`
	TotalCollected    decimal.Decimal  `json:"total_collected"`
	TotalPending      decimal.Decimal  `json:"total_pending"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
	CollectedPercent  decimal.Decimal  `json:"collected_percent"`
}

// ClientStatistics aggregates the client base
type ClientStatistics struct {
	Total         int64            `json:"total"`
	Active        int64            `json:"active"`
	NewLast30Days int64            `json:"new_last_30_days"`
	ByCategory    map[string]int64 `json:"by_category"`
}
