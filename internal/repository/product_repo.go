package repository

import (
	"context"
	"strings"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID *uuid.UUID
	LowStock   bool
	Search     string
	Page       int
	Limit      int
}

// StockChange is the before/after snapshot of a guarded stock update.
type StockChange struct {
	Product *model.Product
	Before  decimal.Decimal
	After   decimal.Decimal
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByNameAndCategory(ctx context.Context, name string, categoryID uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
	CountLowStock(ctx context.Context) (int64, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error)
	IncrementStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error)
	SetStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

// Update saves descriptive fields and prices. The quantity column is left
// alone; stock only changes through the guarded helpers below.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Model(product).
		Select("name", "category_id", "brand", "color", "supplier", "min_stock", "purchase_price", "sale_price").
		Updates(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByNameAndCategory(ctx context.Context, name string, categoryID uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).
		Where("LOWER(name) = LOWER(?) AND category_id = ?", name, categoryID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if filter.CategoryID != nil {
		db = db.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.LowStock {
		db = db.Where("current_quantity <= min_stock")
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		p := likePattern(s)
		db = db.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(color) LIKE ?", p, p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Category").Order("name asc").
		Scopes(paginate(filter.Page, filter.Limit)).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Preload("Category").Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Preload("Category").
		Where("current_quantity <= min_stock").
		Order("current_quantity asc").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) CountLowStock(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("current_quantity <= min_stock").Count(&total).Error
	return total, err
}

// DecrementStock subtracts qty in a single compare-and-swap statement. A zero-row
// result (missing product or not enough stock) is reported as ErrNoRowsAffected.
// The guard is arithmetic so sqlite reads the bound decimal as a number, and it
// compares whole hundredths because sqlite keeps these columns as REAL.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.Product{}).
		Where("id = ? AND ROUND((current_quantity - ?) * 100) >= 0", id, qty).
		Update("current_quantity", gorm.Expr("ROUND(current_quantity - ?, 2)", qty))
	if err := guardedUpdate(res); err != nil {
		return nil, err
	}

	product, err := r.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockChange{Product: product, Before: product.CurrentQuantity.Add(qty), After: product.CurrentQuantity}, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.Product{}).
		Where("id = ?", id).
		Update("current_quantity", gorm.Expr("ROUND(current_quantity + ?, 2)", qty))
	if err := guardedUpdate(res); err != nil {
		return nil, err
	}

	product, err := r.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockChange{Product: product, Before: product.CurrentQuantity.Sub(qty), After: product.CurrentQuantity}, nil
}

// SetStock overwrites the quantity. The row is locked first so the before
// value is the one actually replaced.
func (r *productRepository) SetStock(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (*StockChange, error) {
	current, err := r.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	before := current.CurrentQuantity.Round(2)

	res := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ?", id).
		Update("current_quantity", qty)
	if err := guardedUpdate(res); err != nil {
		return nil, err
	}

	product, err := r.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockChange{Product: product, Before: before, After: product.CurrentQuantity}, nil
}

func (r *productRepository) reload(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.CurrentQuantity = product.CurrentQuantity.Round(2)
	return product, nil
}
