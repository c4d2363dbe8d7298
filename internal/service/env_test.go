package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dotaciones/internal/cache"
	"dotaciones/internal/database"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type testEnv struct {
	db        *gorm.DB
	events    *recorder
	clients   ClientService
	inventory InventoryService
	orders    OrderService
	payments  PaymentService
	sales     SaleService
	dashboard DashboardService
	reports   ReportService
	users     UserService
	roles     RoleService
	audit     AuditService

	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	orderRepo    repository.OrderRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewConnection(database.Options{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tx := repository.NewTransactionManager(db)
	clientRepo := repository.NewClientRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	events := &recorder{}

	return &testEnv{
		db:        db,
		events:    events,
		clients:   NewClientService(clientRepo, orderRepo, auditRepo, tx),
		inventory: NewInventoryService(categoryRepo, productRepo, movementRepo, auditRepo, tx, events),
		orders: NewOrderService(OrderServiceDeps{
			OrderRepo:    orderRepo,
			ClientRepo:   clientRepo,
			ProductRepo:  productRepo,
			MovementRepo: movementRepo,
			PaymentRepo:  paymentRepo,
			StatsRepo:    statsRepo,
			AuditRepo:    auditRepo,
			TxManager:    tx,
			Policy:       model.NewStatusPolicy(true),
			Events:       events,
			MediaDir:     t.TempDir(),
		}),
		payments:  NewPaymentService(orderRepo, paymentRepo, auditRepo, tx, events),
		sales:     NewSaleService(saleRepo, clientRepo, productRepo, movementRepo, auditRepo, tx, events),
		dashboard: NewDashboardService(statsRepo, productRepo, clientRepo, cache.Noop{}, 0),
		reports:   NewReportService(categoryRepo, productRepo, movementRepo, auditRepo, tx, events),
		users: NewUserService(repository.NewUserRepository(db), auditRepo, tx, AuthSettings{
			Secret: []byte("test-secret"),
		}),
		roles: NewRoleService(repository.NewRoleRepository(db), tx),
		audit: NewAuditService(auditRepo),

		productRepo:  productRepo,
		movementRepo: movementRepo,
		orderRepo:    orderRepo,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) createClient(t *testing.T, name, phone string) *model.Client {
	t.Helper()
	client, err := e.clients.CreateClient(context.Background(), SystemActor, CreateClientRequest{
		Name:  name,
		Phone: phone,
	})
	require.NoError(t, err)
	return client
}

func (e *testEnv) createProduct(t *testing.T, name string, qty, minStock string) *ProductResponse {
	t.Helper()
	ctx := context.Background()
	category, err := e.inventory.CreateCategory(ctx, SystemActor, CreateCategoryRequest{Name: "Cat " + name})
	require.NoError(t, err)
	product, err := e.inventory.CreateProduct(ctx, SystemActor, CreateProductRequest{
		Name:          name,
		CategoryID:    category.ID.String(),
		Quantity:      dec(qty),
		MinStock:      dec(minStock),
		PurchasePrice: dec("8000"),
		SalePrice:     dec("12000"),
	})
	require.NoError(t, err)
	return product
}

func (e *testEnv) placeOrder(t *testing.T, clientID uuid.UUID, total, advance string) *OrderResponse {
	t.Helper()
	order, err := e.orders.PlaceOrder(context.Background(), SystemActor, CreateOrderRequest{
		ClientID:           clientID.String(),
		PromisedDeliveryAt: time.Now().Add(72 * time.Hour),
		EmbroideryType:     model.EmbroideryComputerized,
		Description:        "School logo on 20 polos",
		TotalPrice:         dec(total),
		AdvancePaid:        dec(advance),
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) movements(t *testing.T, productID uuid.UUID, movementType string) []model.InventoryMovement {
	t.Helper()
	movements, _, err := e.movementRepo.List(context.Background(), repository.MovementFilter{
		ProductID: &productID,
		Type:      movementType,
	})
	require.NoError(t, err)
	return movements
}
