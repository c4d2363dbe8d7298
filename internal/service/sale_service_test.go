package service

import (
	"context"
	"errors"
	"testing"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	ws "dotaciones/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleService_RejectsLineAboveStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Polo Shirt", "10", "5")

	_, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("12")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var shortage *StockShortageError
	require.True(t, errors.As(err, &shortage))
	assert.True(t, shortage.Available.Equal(dec("10")))
	assert.True(t, shortage.Requested.Equal(dec("12")))

	current, err := env.productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.CurrentQuantity.Equal(dec("10")))
	assert.Empty(t, env.movements(t, product.ID, model.MovementOutSale))

	sales, total, err := env.sales.ListSales(ctx, repository.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, sales)
}

func TestSaleService_DecrementsStockAndLogsOneMovement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Polo Shirt", "10", "5")

	sale, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("3")}},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Total.Equal(dec("36000")))
	assert.True(t, sale.Paid)

	current, err := env.productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.CurrentQuantity.Equal(dec("7")))

	movements := env.movements(t, product.ID, model.MovementOutSale)
	require.Len(t, movements, 1)
	assert.True(t, movements[0].QuantityBefore.Equal(dec("10")))
	assert.True(t, movements[0].QuantityAfter.Equal(dec("7")))
	assert.True(t, movements[0].Quantity.Equal(dec("3")))
	require.NotNil(t, movements[0].SaleID)
	assert.Equal(t, sale.ID, *movements[0].SaleID)

	assert.Contains(t, env.events.names(), ws.EventSaleCreated)
	assert.NotContains(t, env.events.names(), ws.EventStockLow)
}

func TestSaleService_AbortsWholeSaleWhenOneLineIsShort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	polo := env.createProduct(t, "Polo Shirt", "10", "5")
	hat := env.createProduct(t, "Cap", "1", "0")

	_, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCard,
		Items: []SaleItemRequest{
			{ProductID: polo.ID.String(), Quantity: dec("2")},
			{ProductID: hat.ID.String(), Quantity: dec("2")},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	current, err := env.productRepo.FindByID(ctx, polo.ID)
	require.NoError(t, err)
	assert.True(t, current.CurrentQuantity.Equal(dec("10")))
	assert.Empty(t, env.movements(t, polo.ID, model.MovementOutSale))
}

func TestSaleService_LowStockEventAndClientDiscount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Polo Shirt", "10", "5")

	client, err := env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{
		Name:            "colegio san jose",
		Phone:           "300 123 4567",
		Category:        model.ClientCategoryBusiness,
		SpecialDiscount: dec("10"),
	})
	require.NoError(t, err)

	sale, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		ClientID:      client.ID.String(),
		PaymentMethod: model.PaymentMethodCredit,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("5")}},
	})
	require.NoError(t, err)
	assert.False(t, sale.Paid)
	assert.True(t, sale.Subtotal.Equal(dec("60000")))
	assert.True(t, sale.Discount.Equal(dec("6000")))
	assert.True(t, sale.Total.Equal(dec("54000")))
	assert.Contains(t, env.events.names(), ws.EventStockLow)

	reloaded, err := env.clients.GetClient(ctx, client.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastPurchaseAt)
}

func TestSaleService_AddItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Polo Shirt", "10", "5")

	sale, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("1")}},
	})
	require.NoError(t, err)

	price := dec("11000")
	line, err := env.sales.AddItem(ctx, SystemActor, sale.ID, SaleItemRequest{
		ProductID: product.ID.String(),
		Quantity:  dec("2"),
		UnitPrice: &price,
	})
	require.NoError(t, err)
	assert.True(t, line.Stock.Before.Equal(dec("9")))
	assert.True(t, line.Stock.After.Equal(dec("7")))
	assert.True(t, line.Sale.Total.Equal(dec("34000")))

	_, err = env.sales.AddItem(ctx, SystemActor, sale.ID, SaleItemRequest{
		ProductID: product.ID.String(),
		Quantity:  dec("8"),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	reloaded, err := env.sales.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 2)
	assert.True(t, reloaded.Total.Equal(dec("34000")))
	assert.Len(t, env.movements(t, product.ID, model.MovementOutSale), 2)
}

func TestSaleService_ExactAndFractionalQuantities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Thread", "10", "2")

	_, err := env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("9.999")}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("10.01")}},
	})
	var shortage *StockShortageError
	require.True(t, errors.As(err, &shortage))
	assert.Contains(t, err.Error(), "available 10, requested 10.01")

	_, err = env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("9.75")}},
	})
	require.NoError(t, err)
	_, err = env.sales.CreateSale(ctx, SystemActor, CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		Items:         []SaleItemRequest{{ProductID: product.ID.String(), Quantity: dec("0.25")}},
	})
	require.NoError(t, err)

	current, err := env.productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.CurrentQuantity.IsZero())

	out := env.movements(t, product.ID, model.MovementOutSale)
	require.Len(t, out, 2)
	for _, m := range out {
		assert.True(t, m.QuantityBefore.Sub(m.Quantity).Equal(m.QuantityAfter))
	}
}
