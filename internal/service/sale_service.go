package service

import (
	"context"
	"fmt"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	ws "dotaciones/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	ProductID string           `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CreateSaleRequest struct {
	ClientID      string            `json:"client_id" binding:"omitempty,uuid"`
	PaymentMethod string            `json:"payment_method" binding:"required,oneof=cash transfer card credit"`
	Paid          *bool             `json:"paid"`
	Discount      *decimal.Decimal  `json:"discount"`
	Notes         string            `json:"notes"`
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleLineResult describes one recorded line and the stock it consumed.
type SaleLineResult struct {
	Item  model.SaleItem      `json:"item"`
	Stock StockChangeResponse `json:"stock"`
	Sale  *model.Sale         `json:"sale,omitempty"`
}

type SaleService interface {
	CreateSale(ctx context.Context, actor Actor, req CreateSaleRequest) (*model.Sale, error)
	AddItem(ctx context.Context, actor Actor, saleID uuid.UUID, req SaleItemRequest) (*SaleLineResult, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error)
}

type saleService struct {
	saleRepo   repository.SaleRepository
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	stock      *stockKeeper
	events     EventPublisher
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	clientRepo repository.ClientRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) SaleService {
	return &saleService{
		saleRepo:   saleRepo,
		clientRepo: clientRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		stock:      newStockKeeper(productRepo, movementRepo),
		events:     publisherOrNoop(events),
	}
}

func (s *saleService) CreateSale(ctx context.Context, actor Actor, req CreateSaleRequest) (*model.Sale, error) {
	if !model.IsValidPaymentMethod(req.PaymentMethod, true) {
		return nil, validationError("unknown payment method %q", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return nil, validationError("a sale needs at least one item")
	}
	if req.Discount != nil {
		if req.Discount.IsNegative() {
			return nil, validationError("discount cannot be negative")
		}
		if err := checkCents("discount", *req.Discount); err != nil {
			return nil, err
		}
	}
	for _, item := range req.Items {
		if err := checkCents("quantity", item.Quantity); err != nil {
			return nil, err
		}
	}

	paid := req.PaymentMethod != model.PaymentMethodCredit
	if req.Paid != nil && req.PaymentMethod != model.PaymentMethodCredit {
		paid = *req.Paid
	}

	now := time.Now()
	sale := &model.Sale{
		SoldAt:        now,
		PaymentMethod: req.PaymentMethod,
		Paid:          paid,
		Notes:         req.Notes,
	}

	var client *model.Client
	var changes []*repository.StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.ClientID != "" {
			clientID, err := uuid.Parse(req.ClientID)
			if err != nil {
				return validationError("invalid client_id")
			}
			client, err = s.clientRepo.FindByID(txCtx, clientID)
			if err != nil {
				return mapNotFound(err, "client")
			}
			if !client.Active {
				return validationError("client %s is inactive", client.Name)
			}
			sale.ClientID = &client.ID
		}

		if err := s.saleRepo.Create(txCtx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		subtotal := decimal.Zero
		for _, itemReq := range req.Items {
			item, change, err := s.addLine(txCtx, actor, sale.ID, itemReq)
			if err != nil {
				return err
			}
			changes = append(changes, change)
			subtotal = subtotal.Add(item.Subtotal)
		}

		sale.Subtotal = subtotal
		switch {
		case req.Discount != nil:
			sale.Discount = *req.Discount
		case client != nil && client.HasDiscount():
			sale.Discount = subtotal.Mul(client.SpecialDiscount).Div(hundred).Round(2)
		default:
			sale.Discount = decimal.Zero
		}
		if sale.Discount.GreaterThan(subtotal) {
			return validationError("discount cannot exceed the subtotal")
		}
		sale.Recalculate()
		if err := s.saleRepo.UpdateTotals(txCtx, sale); err != nil {
			return fmt.Errorf("failed to update sale totals: %w", err)
		}

		if client != nil {
			if err := s.clientRepo.TouchLastPurchase(txCtx, client.ID, now); err != nil {
				return fmt.Errorf("failed to stamp client purchase: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSale, sale.ID.String(), sale.Total.StringFixed(2), req)
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(changes)
	log.Info().Str("sale_id", sale.ID.String()).Str("total", sale.Total.String()).Int("items", len(req.Items)).Msg("sale recorded")
	s.events.Publish(ws.EventSaleCreated, map[string]interface{}{
		"sale_id": sale.ID,
		"total":   sale.Total,
		"method":  sale.PaymentMethod,
	})

	return s.GetSale(ctx, sale.ID)
}

// AddItem records one more line on an existing sale. The stock check and the
// movement are atomic with the line insert.
func (s *saleService) AddItem(ctx context.Context, actor Actor, saleID uuid.UUID, req SaleItemRequest) (*SaleLineResult, error) {
	var result SaleLineResult
	var change *repository.StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByID(txCtx, saleID)
		if err != nil {
			return mapNotFound(err, "sale")
		}

		item, ch, err := s.addLine(txCtx, actor, sale.ID, req)
		if err != nil {
			return err
		}
		change = ch

		sale.Subtotal = sale.Subtotal.Add(item.Subtotal)
		sale.Recalculate()
		if err := s.saleRepo.UpdateTotals(txCtx, sale); err != nil {
			return fmt.Errorf("failed to update sale totals: %w", err)
		}

		result.Item = *item
		result.Sale = sale
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAddSaleItem, sale.ID.String(), change.Product.Name, req)
	})
	if err != nil {
		return nil, err
	}

	result.Stock = *stockChangeResponse(change)
	s.publishStock([]*repository.StockChange{change})
	return &result, nil
}

// addLine consumes stock, logs the movement and inserts the line item.
func (s *saleService) addLine(ctx context.Context, actor Actor, saleID uuid.UUID, req SaleItemRequest) (*model.SaleItem, *repository.StockChange, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, nil, validationError("invalid product_id %q", req.ProductID)
	}
	if req.UnitPrice != nil {
		if !req.UnitPrice.IsPositive() {
			return nil, nil, validationError("unit price must be greater than 0")
		}
		if err := checkCents("unit price", *req.UnitPrice); err != nil {
			return nil, nil, err
		}
	}

	change, err := s.stock.consume(ctx, actor, productID, req.Quantity, model.MovementOutSale, "Direct sale", movementRef{SaleID: &saleID})
	if err != nil {
		return nil, nil, err
	}

	unitPrice := change.Product.SalePrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	item := &model.SaleItem{
		SaleID:    saleID,
		ProductID: productID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
	}
	if err := s.saleRepo.CreateItem(ctx, item); err != nil {
		return nil, nil, fmt.Errorf("failed to create sale item: %w", err)
	}
	return item, change, nil
}

func (s *saleService) publishStock(changes []*repository.StockChange) {
	for _, change := range changes {
		if change.Product.NeedsRestock() {
			s.events.Publish(ws.EventStockLow, stockChangeResponse(change))
		}
	}
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "sale")
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	if filter.PaymentMethod != "" && !model.IsValidPaymentMethod(filter.PaymentMethod, true) {
		return nil, 0, validationError("unknown payment method %q", filter.PaymentMethod)
	}
	return s.saleRepo.List(ctx, filter)
}
