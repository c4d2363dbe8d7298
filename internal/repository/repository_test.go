package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dotaciones/internal/database"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(database.Options{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "repo.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, qty int64) *model.Product {
	t.Helper()
	ctx := context.Background()
	category, err := repository.NewCategoryRepository(db).FirstOrCreateByName(ctx, "Shirts")
	require.NoError(t, err)
	product := &model.Product{
		Name:            "Polo Shirt",
		CategoryID:      category.ID,
		CurrentQuantity: decimal.NewFromInt(qty),
		MinStock:        decimal.NewFromInt(2),
		PurchasePrice:   decimal.NewFromInt(8000),
		SalePrice:       decimal.NewFromInt(12000),
	}
	require.NoError(t, repository.NewProductRepository(db).Create(ctx, product))
	return product
}

func TestProductRepository_DecrementStockIsGuarded(t *testing.T) {
	db := openDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	change, err := repo.DecrementStock(ctx, product.ID, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, change.Before.Equal(decimal.NewFromInt(5)))
	assert.True(t, change.After.Equal(decimal.NewFromInt(2)))

	_, err = repo.DecrementStock(ctx, product.ID, decimal.NewFromInt(3))
	assert.True(t, errors.Is(err, repository.ErrNoRowsAffected))

	_, err = repo.DecrementStock(ctx, uuid.New(), decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, repository.ErrNoRowsAffected))

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CurrentQuantity.Equal(decimal.NewFromInt(2)))
}

func TestProductRepository_DecrementStockToZeroAndFractions(t *testing.T) {
	db := openDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, 10)

	change, err := repo.DecrementStock(ctx, product.ID, decimal.RequireFromString("3"))
	require.NoError(t, err)
	assert.Equal(t, "7", change.After.String())

	_, err = repo.SetStock(ctx, product.ID, decimal.RequireFromString("0.3"))
	require.NoError(t, err)
	_, err = repo.DecrementStock(ctx, product.ID, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	change, err = repo.DecrementStock(ctx, product.ID, decimal.RequireFromString("0.2"))
	require.NoError(t, err, "taking the last units must succeed")
	assert.True(t, change.After.IsZero())

	_, err = repo.DecrementStock(ctx, product.ID, decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, repository.ErrNoRowsAffected)
}

func TestProductRepository_SetAndIncrementStock(t *testing.T) {
	db := openDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	change, err := repo.IncrementStock(ctx, product.ID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, change.After.Equal(decimal.NewFromInt(9)))

	change, err = repo.SetStock(ctx, product.ID, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, change.Before.Equal(decimal.NewFromInt(9)))
	assert.True(t, change.After.Equal(decimal.NewFromInt(1)))

	low, err := repo.CountLowStock(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, low)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := openDB(t)
	repo := repository.NewProductRepository(db)
	tx := repository.NewTransactionManager(db)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, repository.InTx(txCtx))
		if _, err := repo.DecrementStock(txCtx, product.ID, decimal.NewFromInt(5)); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return tx.RunInTx(txCtx, func(context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CurrentQuantity.Equal(decimal.NewFromInt(5)))
}

func TestClientRepository_Pagination(t *testing.T) {
	db := openDB(t)
	repo := repository.NewClientRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &model.Client{
			Name:     fmt.Sprintf("Client %d", i),
			Phone:    fmt.Sprintf("300000000%d", i),
			Category: model.ClientCategoryIndividual,
			Active:   true,
		}))
	}

	page, total, err := repo.List(ctx, repository.ClientFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	all, _, err := repo.List(ctx, repository.ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	found, err := repo.FindByPhone(ctx, "3000000003")
	require.NoError(t, err)
	assert.Equal(t, "Client 3", found.Name)
}

func seedOrder(t *testing.T, db *gorm.DB, total string) *model.Order {
	t.Helper()
	ctx := context.Background()
	client := &model.Client{Name: "Ana Ruiz", Phone: "3001234567", Category: model.ClientCategoryIndividual, Active: true}
	require.NoError(t, repository.NewClientRepository(db).Create(ctx, client))
	order := &model.Order{
		ClientID:           client.ID,
		PromisedDeliveryAt: time.Now().AddDate(0, 0, 7),
		EmbroideryType:     model.EmbroideryComputerized,
		Description:        "Logo on 20 polos",
		TotalPrice:         decimal.RequireFromString(total),
	}
	require.NoError(t, repository.NewOrderRepository(db).Create(ctx, order))
	return order
}

func TestOrderRepository_AddAdvanceIsGuarded(t *testing.T) {
	db := openDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, "100")

	require.NoError(t, repo.AddAdvance(ctx, order.ID, decimal.RequireFromString("60.10")))
	assert.ErrorIs(t, repo.AddAdvance(ctx, order.ID, decimal.RequireFromString("39.91")), repository.ErrNoRowsAffected)

	pending, _, err := repo.List(ctx, repository.OrderFilter{PendingPayment: true})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.AddAdvance(ctx, order.ID, decimal.RequireFromString("39.90")))
	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsFullyPaid())
	assert.True(t, reloaded.AdvancePaid.Equal(decimal.NewFromInt(100)))

	pending, _, err = repo.List(ctx, repository.OrderFilter{PendingPayment: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	reloaded.TotalPrice = decimal.RequireFromString("99.99")
	assert.ErrorIs(t, repo.UpdateDetails(ctx, reloaded), repository.ErrNoRowsAffected)
}
