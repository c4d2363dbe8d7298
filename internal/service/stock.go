package service

import (
	"context"
	"errors"
	"fmt"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockShortageError reports a line that asked for more than is on hand.
type StockShortageError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.ProductName, e.Available.String(), e.Requested.String())
}

func (e *StockShortageError) Unwrap() error { return ErrInsufficientStock }

// movementRef links a movement to the document that caused it.
type movementRef struct {
	SaleID  *uuid.UUID
	OrderID *uuid.UUID
}

// stockKeeper performs guarded stock updates and logs one movement per change.
// Callers run it inside a transaction.
type stockKeeper struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
}

func newStockKeeper(productRepo repository.ProductRepository, movementRepo repository.MovementRepository) *stockKeeper {
	return &stockKeeper{productRepo: productRepo, movementRepo: movementRepo}
}

// consume removes qty from a product or fails with a StockShortageError.
func (k *stockKeeper) consume(ctx context.Context, actor Actor, productID uuid.UUID, qty decimal.Decimal, movementType, reason string, ref movementRef) (*repository.StockChange, error) {
	if !qty.IsPositive() {
		return nil, validationError("quantity must be greater than 0")
	}
	if err := checkCents("quantity", qty); err != nil {
		return nil, err
	}

	change, err := k.productRepo.DecrementStock(ctx, productID, qty)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		product, findErr := k.productRepo.FindByID(ctx, productID)
		if findErr != nil {
			return nil, mapNotFound(findErr, "product")
		}
		return nil, &StockShortageError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.CurrentQuantity.Round(2),
			Requested:   qty,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := k.log(ctx, actor, change, movementType, qty, reason, ref); err != nil {
		return nil, err
	}
	return change, nil
}

// restock adds qty to a product.
func (k *stockKeeper) restock(ctx context.Context, actor Actor, productID uuid.UUID, qty decimal.Decimal, movementType, reason string, ref movementRef) (*repository.StockChange, error) {
	if !qty.IsPositive() {
		return nil, validationError("quantity must be greater than 0")
	}
	if err := checkCents("quantity", qty); err != nil {
		return nil, err
	}

	change, err := k.productRepo.IncrementStock(ctx, productID, qty)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		return nil, notFoundError("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}

	if err := k.log(ctx, actor, change, movementType, qty, reason, ref); err != nil {
		return nil, err
	}
	return change, nil
}

// set overwrites the quantity and records the absolute difference.
func (k *stockKeeper) set(ctx context.Context, actor Actor, productID uuid.UUID, qty decimal.Decimal, reason string) (*repository.StockChange, error) {
	if qty.IsNegative() {
		return nil, validationError("quantity cannot be negative")
	}
	if err := checkCents("quantity", qty); err != nil {
		return nil, err
	}

	change, err := k.productRepo.SetStock(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, notFoundError("product")
		}
		return nil, mapNotFound(err, "product")
	}

	diff := change.After.Sub(change.Before).Abs()
	if err := k.log(ctx, actor, change, model.MovementAdjustment, diff, reason, movementRef{}); err != nil {
		return nil, err
	}
	return change, nil
}

func (k *stockKeeper) log(ctx context.Context, actor Actor, change *repository.StockChange, movementType string, qty decimal.Decimal, reason string, ref movementRef) error {
	movement := &model.InventoryMovement{
		ProductID:      change.Product.ID,
		Type:           movementType,
		Quantity:       qty,
		QuantityBefore: change.Before,
		QuantityAfter:  change.After,
		Reason:         reason,
		SaleID:         ref.SaleID,
		OrderID:        ref.OrderID,
		PerformedBy:    actor.Username,
	}
	if err := k.movementRepo.Create(ctx, movement); err != nil {
		return fmt.Errorf("failed to record inventory movement: %w", err)
	}
	return nil
}
