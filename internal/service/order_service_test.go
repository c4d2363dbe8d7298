package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveTo(t *testing.T, env *testEnv, id uuid.UUID, statuses ...string) *OrderResponse {
	t.Helper()
	var res *OrderResponse
	for _, st := range statuses {
		var err error
		res, err = env.orders.ChangeStatus(context.Background(), SystemActor, id, ChangeStatusRequest{Status: st})
		require.NoError(t, err, "moving to %s", st)
	}
	return res
}

func TestOrderService_PlaceOrderRecordsAdvancePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")

	order := env.placeOrder(t, client.ID, "200000", "50000")
	assert.Equal(t, model.OrderStatusReceived, order.Status)
	assert.True(t, order.PendingBalance.Equal(dec("150000")))
	assert.False(t, order.FullyPaid)
	require.Len(t, order.Payments, 1)
	assert.Equal(t, "Advance", order.Payments[0].Concept)
	assert.True(t, order.Payments[0].Amount.Equal(dec("50000")))

	reloaded, err := env.clients.GetClient(ctx, client.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastPurchaseAt)
}

func TestOrderService_PlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")

	base := CreateOrderRequest{
		ClientID:           client.ID.String(),
		PromisedDeliveryAt: time.Now().Add(48 * time.Hour),
		EmbroideryType:     model.EmbroideryManual,
		Description:        "Name on jacket",
		TotalPrice:         dec("50000"),
	}

	tooMuch := base
	tooMuch.AdvancePaid = dec("60000")
	_, err := env.orders.PlaceOrder(ctx, SystemActor, tooMuch)
	assert.ErrorIs(t, err, ErrValidation)

	noDate := base
	noDate.PromisedDeliveryAt = time.Time{}
	_, err = env.orders.PlaceOrder(ctx, SystemActor, noDate)
	assert.ErrorIs(t, err, ErrValidation)

	unknown := base
	unknown.ClientID = uuid.NewString()
	_, err = env.orders.PlaceOrder(ctx, SystemActor, unknown)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.clients.DeactivateClient(ctx, SystemActor, client.ID))
	_, err = env.orders.PlaceOrder(ctx, SystemActor, base)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_MaterialsConsumeStockAtomically(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	thread := env.createProduct(t, "Thread", "4", "1")

	req := CreateOrderRequest{
		ClientID:           client.ID.String(),
		PromisedDeliveryAt: time.Now().Add(48 * time.Hour),
		EmbroideryType:     model.EmbroideryCombined,
		Description:        "Team crest",
		TotalPrice:         dec("90000"),
		Items:              []OrderMaterialRequest{{ProductID: thread.ID.String(), Quantity: dec("5")}},
	}
	_, err := env.orders.PlaceOrder(ctx, SystemActor, req)
	require.ErrorIs(t, err, ErrInsufficientStock)

	orders, total, err := env.orders.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	req.Items[0].Quantity = dec("3")
	order, err := env.orders.PlaceOrder(ctx, SystemActor, req)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	movements := env.movements(t, thread.ID, model.MovementOutOrder)
	require.Len(t, movements, 1)
	require.NotNil(t, movements[0].OrderID)
	assert.Equal(t, order.ID, *movements[0].OrderID)
	assert.True(t, movements[0].Quantity.Equal(dec("3")))
	assert.True(t, movements[0].QuantityBefore.Equal(dec("4")))
	assert.True(t, movements[0].QuantityAfter.Equal(dec("1")))

	current, err := env.productRepo.FindByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.True(t, current.CurrentQuantity.Equal(movements[0].QuantityAfter))
}

func TestOrderService_RejectsSubCentValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	thread := env.createProduct(t, "Thread", "4", "1")

	req := CreateOrderRequest{
		ClientID:           client.ID.String(),
		PromisedDeliveryAt: time.Now().Add(48 * time.Hour),
		EmbroideryType:     model.EmbroideryManual,
		Description:        "Name tags",
		TotalPrice:         dec("50000"),
		Items:              []OrderMaterialRequest{{ProductID: thread.ID.String(), Quantity: dec("1.005")}},
	}
	_, err := env.orders.PlaceOrder(ctx, SystemActor, req)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "two decimal places")
	assert.Empty(t, env.movements(t, thread.ID, model.MovementOutOrder))

	req.Items = nil
	req.TotalPrice = dec("50000.001")
	_, err = env.orders.PlaceOrder(ctx, SystemActor, req)
	require.ErrorIs(t, err, ErrValidation)

	order := env.placeOrder(t, client.ID, "50000", "10000")
	total := dec("49999.999")
	_, err = env.orders.UpdateOrder(ctx, SystemActor, order.ID, UpdateOrderRequest{TotalPrice: &total})
	require.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_StatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "0")

	_, err := env.orders.ChangeStatus(ctx, SystemActor, order.ID, ChangeStatusRequest{Status: model.OrderStatusDelivered})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "approved, cancelled, in_design, in_process")

	_, err = env.orders.ChangeStatus(ctx, SystemActor, order.ID, ChangeStatusRequest{Status: "shipped"})
	require.ErrorIs(t, err, ErrValidation)

	delivered := moveTo(t, env, order.ID, model.OrderStatusInProcess, model.OrderStatusFinished, model.OrderStatusDelivered)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.ActualDeliveryAt)
	assert.Empty(t, delivered.AllowedNext)

	_, err = env.orders.ChangeStatus(ctx, SystemActor, order.ID, ChangeStatusRequest{Status: model.OrderStatusCancelled})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "none")
}

func TestOrderService_CancelClearsDeliveryAndReactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "0")

	stamp := time.Now().Add(-time.Hour)
	moveTo(t, env, order.ID, model.OrderStatusInProcess, model.OrderStatusFinished)
	require.NoError(t, env.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusFinished, model.OrderStatusFinished, &stamp))

	cancelled := moveTo(t, env, order.ID, model.OrderStatusInProcess, model.OrderStatusCancelled)
	assert.Nil(t, cancelled.ActualDeliveryAt)
	assert.Equal(t, []string{model.OrderStatusReceived}, cancelled.AllowedNext)

	reactivated := moveTo(t, env, order.ID, model.OrderStatusReceived)
	assert.Equal(t, model.OrderStatusReceived, reactivated.Status)
}

func TestOrderService_DeliveredKeepsExistingDeliveryTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "0")

	stamp := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	moveTo(t, env, order.ID, model.OrderStatusInProcess, model.OrderStatusFinished)
	require.NoError(t, env.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusFinished, model.OrderStatusFinished, &stamp))

	delivered := moveTo(t, env, order.ID, model.OrderStatusDelivered)
	require.NotNil(t, delivered.ActualDeliveryAt)
	assert.True(t, delivered.ActualDeliveryAt.Equal(stamp))
}

func TestOrderService_ReactivationDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "0")

	strict := NewOrderService(OrderServiceDeps{
		OrderRepo:    env.orderRepo,
		ClientRepo:   repository.NewClientRepository(env.db),
		ProductRepo:  env.productRepo,
		MovementRepo: env.movementRepo,
		PaymentRepo:  repository.NewPaymentRepository(env.db),
		StatsRepo:    repository.NewStatisticsRepository(env.db),
		AuditRepo:    repository.NewAuditRepository(env.db),
		TxManager:    repository.NewTransactionManager(env.db),
		Policy:       model.NewStatusPolicy(false),
	})

	_, err := strict.ChangeStatus(ctx, SystemActor, order.ID, ChangeStatusRequest{Status: model.OrderStatusCancelled})
	require.NoError(t, err)
	_, err = strict.ChangeStatus(ctx, SystemActor, order.ID, ChangeStatusRequest{Status: model.OrderStatusReceived})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_BulkMarkDelivered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")

	finished1 := env.placeOrder(t, client.ID, "100000", "0")
	finished2 := env.placeOrder(t, client.ID, "80000", "0")
	received := env.placeOrder(t, client.ID, "60000", "0")
	moveTo(t, env, finished1.ID, model.OrderStatusInProcess, model.OrderStatusFinished)
	moveTo(t, env, finished2.ID, model.OrderStatusInProcess, model.OrderStatusFinished)

	n, err := env.orders.BulkMarkDelivered(ctx, SystemActor, []uuid.UUID{finished1.ID, finished2.ID, received.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []uuid.UUID{finished1.ID, finished2.ID} {
		o, err := env.orders.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusDelivered, o.Status)
		assert.NotNil(t, o.ActualDeliveryAt)
	}
	o, err := env.orders.GetOrder(ctx, received.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReceived, o.Status)

	_, err = env.orders.BulkMarkDelivered(ctx, SystemActor, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_UpdateOrderTotalNotBelowAdvance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "40000")

	low := dec("30000")
	_, err := env.orders.UpdateOrder(ctx, SystemActor, order.ID, UpdateOrderRequest{TotalPrice: &low})
	require.ErrorIs(t, err, ErrValidation)

	higher := dec("120000")
	notes := "rush job"
	updated, err := env.orders.UpdateOrder(ctx, SystemActor, order.ID, UpdateOrderRequest{TotalPrice: &higher, InternalNotes: &notes})
	require.NoError(t, err)
	assert.True(t, updated.PendingBalance.Equal(dec("80000")))
	assert.Equal(t, "rush job", updated.InternalNotes)
}

func TestOrderService_ListFiltersAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")

	env.placeOrder(t, client.ID, "100000", "100000")
	pending := env.placeOrder(t, client.ID, "50000", "10000")
	cancelled := env.placeOrder(t, client.ID, "30000", "0")
	moveTo(t, env, cancelled.ID, model.OrderStatusCancelled)

	orders, total, err := env.orders.ListOrders(ctx, repository.OrderFilter{PendingPayment: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, pending.ID, orders[0].ID)

	orders, _, err = env.orders.ListOrders(ctx, repository.OrderFilter{Statuses: []string{model.OrderStatusCancelled}})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, cancelled.ID, orders[0].ID)

	_, _, err = env.orders.ListOrders(ctx, repository.OrderFilter{Statuses: []string{"lost"}})
	assert.ErrorIs(t, err, ErrValidation)

	dash, err := env.orders.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, dash.TotalOrders)
	assert.EqualValues(t, 2, dash.ActiveOrders)
	assert.EqualValues(t, 2, dash.ByStatus[model.OrderStatusReceived])
	assert.EqualValues(t, 1, dash.ByStatus[model.OrderStatusCancelled])
	assert.True(t, dash.TotalBilled.Equal(dec("150000")), dash.TotalBilled.String())
	assert.True(t, dash.TotalCollected.Equal(dec("110000")), dash.TotalCollected.String())
	assert.True(t, dash.TotalPending.Equal(dec("40000")))
}

func TestOrderService_UploadDesign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Ana Gomez", "3001112233")
	order := env.placeOrder(t, client.ID, "100000", "0")

	_, err := env.orders.UploadDesign(ctx, SystemActor, order.ID, "logo.exe", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrValidation)

	rel, err := env.orders.UploadDesign(ctx, SystemActor, order.ID, "logo.DST", strings.NewReader("stitches"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "orders/"+order.ID.String()+"/design-"))
	assert.True(t, strings.HasSuffix(rel, ".dst"))

	svc := env.orders.(*orderService)
	content, err := os.ReadFile(filepath.Join(svc.mediaDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "stitches", string(content))

	reloaded, err := env.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, rel, reloaded.DesignFile)
}
