package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	ws "dotaciones/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required,max=200"`
	CategoryID    string          `json:"category_id" binding:"required,uuid"`
	Brand         string          `json:"brand"`
	Color         string          `json:"color"`
	Supplier      string          `json:"supplier"`
	Quantity      decimal.Decimal `json:"quantity" binding:"gte=0"`
	MinStock      decimal.Decimal `json:"min_stock" binding:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" binding:"gt=0"`
	SalePrice     decimal.Decimal `json:"sale_price" binding:"gt=0"`
}

// UpdateProductRequest is partial. Quantity is not editable here; use the
// stock operations instead.
type UpdateProductRequest struct {
	Name          *string          `json:"name" binding:"omitempty,max=200"`
	CategoryID    *string          `json:"category_id" binding:"omitempty,uuid"`
	Brand         *string          `json:"brand"`
	Color         *string          `json:"color"`
	Supplier      *string          `json:"supplier"`
	MinStock      *decimal.Decimal `json:"min_stock"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
}

type AdjustStockRequest struct {
	NewQuantity decimal.Decimal `json:"new_quantity" binding:"gte=0"`
	Reason      string          `json:"reason" binding:"required,max=200"`
}

type PurchaseEntryRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"gt=0"`
	Reason   string          `json:"reason" binding:"max=200"`
}

type ReturnStockRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"gt=0"`
	Reason   string          `json:"reason" binding:"max=200"`
	SaleID   string          `json:"sale_id" binding:"omitempty,uuid"`
	OrderID  string          `json:"order_id" binding:"omitempty,uuid"`
}

// ProductResponse is a product with its derived figures.
type ProductResponse struct {
	model.Product
	NeedsRestock   bool            `json:"needs_restock"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	UnitMargin     decimal.Decimal `json:"unit_margin"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
}

// StockChangeResponse reports the outcome of a stock operation.
type StockChangeResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Before       decimal.Decimal `json:"quantity_before"`
	After        decimal.Decimal `json:"quantity_after"`
	NeedsRestock bool            `json:"needs_restock"`
}

func toProductResponse(p model.Product) ProductResponse {
	p.CurrentQuantity = p.CurrentQuantity.Round(2)
	return ProductResponse{
		Product:        p,
		NeedsRestock:   p.NeedsRestock(),
		InventoryValue: p.InventoryValue().Round(2),
		UnitMargin:     p.UnitMargin(),
		MarginPercent:  p.MarginPercent(),
	}
}

type InventoryService interface {
	CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, actor Actor, id uuid.UUID, req CreateCategoryRequest) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*ProductResponse, error)
	UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]ProductResponse, int64, error)
	StockAlerts(ctx context.Context) ([]ProductResponse, error)

	AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, req AdjustStockRequest) (*StockChangeResponse, error)
	PurchaseEntry(ctx context.Context, actor Actor, id uuid.UUID, req PurchaseEntryRequest) (*StockChangeResponse, error)
	ReturnStock(ctx context.Context, actor Actor, id uuid.UUID, req ReturnStockRequest) (*StockChangeResponse, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, int64, error)
}

type inventoryService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	stock        *stockKeeper
	events       EventPublisher
}

func NewInventoryService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InventoryService {
	return &inventoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		stock:        newStockKeeper(productRepo, movementRepo),
		events:       publisherOrNoop(events),
	}
}

func (s *inventoryService) CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("category name is required")
	}
	category := &model.Category{Name: name, Description: req.Description}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.categoryRepo.FindByName(txCtx, name); err == nil {
			return conflictError("category %q already exists", name)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if err := s.categoryRepo.Create(txCtx, category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *inventoryService) UpdateCategory(ctx context.Context, actor Actor, id uuid.UUID, req CreateCategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("category name is required")
	}

	var category *model.Category
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		category, err = s.categoryRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "category")
		}
		if other, err := s.categoryRepo.FindByName(txCtx, name); err == nil && other.ID != id {
			return conflictError("category %q already exists", name)
		}
		category.Name = name
		category.Description = req.Description
		if err := s.categoryRepo.Update(txCtx, category); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *inventoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.ListAll(ctx)
}

func (s *inventoryService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("product name is required")
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, validationError("invalid category_id")
	}
	if req.Quantity.IsNegative() || req.MinStock.IsNegative() {
		return nil, validationError("quantities cannot be negative")
	}
	if err := checkCents("quantity", req.Quantity); err != nil {
		return nil, err
	}
	if err := checkCents("min stock", req.MinStock); err != nil {
		return nil, err
	}
	if err := validatePrices(req.PurchasePrice, req.SalePrice); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:          name,
		CategoryID:    categoryID,
		Brand:         strings.TrimSpace(req.Brand),
		Color:         strings.TrimSpace(req.Color),
		Supplier:      strings.TrimSpace(req.Supplier),
		MinStock:      req.MinStock,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.createProduct(txCtx, actor, product, req.Quantity, req)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, mapNotFound(err, "product")
	}
	log.Info().Str("product_id", created.ID.String()).Str("name", created.Name).Msg("product created")
	res := toProductResponse(*created)
	return &res, nil
}

// createProduct inserts a product with zero stock and books the opening
// quantity as an inbound movement. It must run inside a transaction.
func (s *inventoryService) createProduct(ctx context.Context, actor Actor, product *model.Product, initial decimal.Decimal, details interface{}) error {
	if _, err := s.categoryRepo.FindByID(ctx, product.CategoryID); err != nil {
		return mapNotFound(err, "category")
	}

	product.CurrentQuantity = decimal.Zero
	if err := s.productRepo.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	if initial.IsPositive() {
		if _, err := s.stock.restock(ctx, actor, product.ID, initial, model.MovementIn, "Initial stock", movementRef{}); err != nil {
			return err
		}
	}
	return writeAudit(ctx, s.auditRepo, actor, model.ActionCreateProduct, product.ID.String(), product.Name, details)
}

func (s *inventoryService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.productRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "product")
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return validationError("product name is required")
			}
			product.Name = name
		}
		if req.CategoryID != nil {
			categoryID, err := uuid.Parse(*req.CategoryID)
			if err != nil {
				return validationError("invalid category_id")
			}
			category, err := s.categoryRepo.FindByID(txCtx, categoryID)
			if err != nil {
				return mapNotFound(err, "category")
			}
			product.CategoryID = categoryID
			product.Category = category
		}
		if req.Brand != nil {
			product.Brand = strings.TrimSpace(*req.Brand)
		}
		if req.Color != nil {
			product.Color = strings.TrimSpace(*req.Color)
		}
		if req.Supplier != nil {
			product.Supplier = strings.TrimSpace(*req.Supplier)
		}
		if req.MinStock != nil {
			if req.MinStock.IsNegative() {
				return validationError("min_stock cannot be negative")
			}
			if err := checkCents("min stock", *req.MinStock); err != nil {
				return err
			}
			product.MinStock = *req.MinStock
		}
		if req.PurchasePrice != nil {
			product.PurchasePrice = *req.PurchasePrice
		}
		if req.SalePrice != nil {
			product.SalePrice = *req.SalePrice
		}
		if err := validatePrices(product.PurchasePrice, product.SalePrice); err != nil {
			return err
		}

		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	res := toProductResponse(*product)
	return &res, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "product")
	}
	res := toProductResponse(*product)
	return &res, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *inventoryService) StockAlerts(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, req AdjustStockRequest) (*StockChangeResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, validationError("a reason is required to adjust stock")
	}

	var change *repository.StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		change, err = s.stock.set(txCtx, actor, id, req.NewQuantity, reason)
		if err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAdjustStock, id.String(), change.Product.Name, map[string]interface{}{
			"before": change.Before,
			"after":  change.After,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", id.String()).Str("before", change.Before.String()).Str("after", change.After.String()).Msg("stock adjusted")
	return s.afterStockChange(change), nil
}

func (s *inventoryService) PurchaseEntry(ctx context.Context, actor Actor, id uuid.UUID, req PurchaseEntryRequest) (*StockChangeResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Purchase entry"
	}

	var change *repository.StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		change, err = s.stock.restock(txCtx, actor, id, req.Quantity, model.MovementIn, reason, movementRef{})
		if err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionPurchaseEntry, id.String(), change.Product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.afterStockChange(change), nil
}

func (s *inventoryService) ReturnStock(ctx context.Context, actor Actor, id uuid.UUID, req ReturnStockRequest) (*StockChangeResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Return"
	}
	var ref movementRef
	if req.SaleID != "" {
		saleID, err := uuid.Parse(req.SaleID)
		if err != nil {
			return nil, validationError("invalid sale_id")
		}
		ref.SaleID = &saleID
	}
	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, validationError("invalid order_id")
		}
		ref.OrderID = &orderID
	}

	var change *repository.StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		change, err = s.stock.restock(txCtx, actor, id, req.Quantity, model.MovementReturn, reason, ref)
		if err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionReturnStock, id.String(), change.Product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.afterStockChange(change), nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, int64, error) {
	if filter.Type != "" && !model.IsValidMovementType(filter.Type) {
		return nil, 0, validationError("unknown movement type %q", filter.Type)
	}
	return s.movementRepo.List(ctx, filter)
}

// afterStockChange broadcasts the change once the transaction has committed.
func (s *inventoryService) afterStockChange(change *repository.StockChange) *StockChangeResponse {
	res := stockChangeResponse(change)
	s.events.Publish(ws.EventStockAdjusted, res)
	if res.NeedsRestock {
		s.events.Publish(ws.EventStockLow, res)
	}
	return res
}

func stockChangeResponse(change *repository.StockChange) *StockChangeResponse {
	return &StockChangeResponse{
		ProductID:    change.Product.ID,
		ProductName:  change.Product.Name,
		Before:       change.Before,
		After:        change.After,
		NeedsRestock: change.Product.NeedsRestock(),
	}
}
