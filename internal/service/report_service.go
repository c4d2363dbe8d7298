package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"dotaciones/internal/excel"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var defaultMinStock = decimal.NewFromInt(5)

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	Created           int      `json:"created"`
	Restocked         int      `json:"restocked"`
	CategoriesCreated []string `json:"categories_created"`
}

type ReportService interface {
	ExportInventory(ctx context.Context, w io.Writer) error
	ImportProducts(ctx context.Context, actor Actor, r io.Reader) (*ImportResult, error)
}

type reportService struct {
	inventory *inventoryService
}

func NewReportService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) ReportService {
	inv := NewInventoryService(categoryRepo, productRepo, movementRepo, auditRepo, txManager, events).(*inventoryService)
	return &reportService{inventory: inv}
}

func (s *reportService) ExportInventory(ctx context.Context, w io.Writer) error {
	products, err := s.inventory.productRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	rows := make([]excel.InventoryReportRow, 0, len(products))
	for _, p := range products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		p.CurrentQuantity = p.CurrentQuantity.Round(2)
		rows = append(rows, excel.InventoryReportRow{
			Name:          p.Name,
			Category:      category,
			Brand:         p.Brand,
			Color:         p.Color,
			Supplier:      p.Supplier,
			Quantity:      p.CurrentQuantity,
			MinStock:      p.MinStock,
			PurchasePrice: p.PurchasePrice,
			SalePrice:     p.SalePrice,
			Value:         p.InventoryValue().Round(2),
			NeedsRestock:  p.NeedsRestock(),
		})
	}
	return excel.WriteInventoryReport(w, rows, time.Now())
}

// ImportProducts creates the products listed in the spreadsheet. A row naming
// an existing product of the same category books its quantity as a purchase
// entry instead. The whole file is imported in one transaction.
func (s *reportService) ImportProducts(ctx context.Context, actor Actor, r io.Reader) (*ImportResult, error) {
	rows, err := excel.ParseProductRows(r)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	result := &ImportResult{CategoriesCreated: []string{}}
	inv := s.inventory
	err = inv.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, row := range rows {
			category, created, err := s.category(txCtx, row.Category)
			if err != nil {
				return err
			}
			if created {
				result.CategoriesCreated = append(result.CategoriesCreated, category.Name)
			}

			existing, err := inv.productRepo.FindByNameAndCategory(txCtx, row.Name, category.ID)
			if err == nil {
				if row.Quantity.IsPositive() {
					if _, err := inv.stock.restock(txCtx, actor, existing.ID, row.Quantity, model.MovementIn, "Spreadsheet import", movementRef{}); err != nil {
						return fmt.Errorf("row %d: %w", row.Row, err)
					}
				}
				result.Restocked++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("row %d: failed to look up product: %w", row.Row, err)
			}

			if row.Quantity.IsNegative() {
				return validationError("row %d: quantity cannot be negative", row.Row)
			}
			if err := checkCents("quantity", row.Quantity); err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			if err := validatePrices(row.PurchasePrice, row.SalePrice); err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			minStock := defaultMinStock
			if row.MinStock != nil {
				if row.MinStock.IsNegative() {
					return validationError("row %d: min stock cannot be negative", row.Row)
				}
				if err := checkCents("min stock", *row.MinStock); err != nil {
					return fmt.Errorf("row %d: %w", row.Row, err)
				}
				minStock = *row.MinStock
			}

			product := &model.Product{
				Name:          row.Name,
				CategoryID:    category.ID,
				Brand:         row.Brand,
				Color:         row.Color,
				Supplier:      row.Supplier,
				MinStock:      minStock,
				PurchasePrice: row.PurchasePrice,
				SalePrice:     row.SalePrice,
			}
			if err := inv.createProduct(txCtx, actor, product, row.Quantity, row); err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			result.Created++
		}
		return writeAudit(txCtx, inv.auditRepo, actor, model.ActionImportProducts, "", "products", result)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("created", result.Created).Int("restocked", result.Restocked).Msg("product import finished")
	return result, nil
}

func (s *reportService) category(ctx context.Context, name string) (*model.Category, bool, error) {
	found, err := s.inventory.categoryRepo.FindByName(ctx, name)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up category: %w", err)
	}
	created, err := s.inventory.categoryRepo.FirstOrCreateByName(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return created, true, nil
}
