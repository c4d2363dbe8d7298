package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	ws "dotaciones/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DTOs
type OrderMaterialRequest struct {
	ProductID string           `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	ClientID           string                 `json:"client_id" binding:"required,uuid"`
	PromisedDeliveryAt time.Time              `json:"promised_delivery_at" binding:"required"`
	EmbroideryType     string                 `json:"embroidery_type" binding:"required,oneof=computerized manual combined"`
	Description        string                 `json:"description" binding:"required"`
	Specifications     string                 `json:"specifications"`
	EstimatedHours     decimal.Decimal        `json:"estimated_hours" binding:"gte=0"`
	TotalPrice         decimal.Decimal        `json:"total_price" binding:"gt=0"`
	AdvancePaid        decimal.Decimal        `json:"advance_paid" binding:"gte=0"`
	AdvanceMethod      string                 `json:"advance_method" binding:"omitempty,oneof=cash transfer card"`
	InternalNotes      string                 `json:"internal_notes"`
	Items              []OrderMaterialRequest `json:"items" binding:"omitempty,dive"`
}

type UpdateOrderRequest struct {
	Description        *string          `json:"description"`
	Specifications     *string          `json:"specifications"`
	EmbroideryType     *string          `json:"embroidery_type" binding:"omitempty,oneof=computerized manual combined"`
	PromisedDeliveryAt *time.Time       `json:"promised_delivery_at"`
	EstimatedHours     *decimal.Decimal `json:"estimated_hours"`
	ActualHours        *decimal.Decimal `json:"actual_hours"`
	InternalNotes      *string          `json:"internal_notes"`
	TotalPrice         *decimal.Decimal `json:"total_price"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type BulkDeliverRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,dive,uuid"`
}

// OrderResponse is an order with its balance figures.
type OrderResponse struct {
	model.Order
	PendingBalance decimal.Decimal `json:"pending_balance"`
	FullyPaid      bool            `json:"fully_paid"`
	Overdue        bool            `json:"overdue"`
	AllowedNext    []string        `json:"allowed_next_statuses"`
}

// allowed design file extensions, including common machine embroidery formats
var designExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".pdf": true, ".svg": true,
	".dst": true, ".pes": true, ".jef": true, ".exp": true, ".emb": true,
}

type OrderService interface {
	PlaceOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*OrderResponse, error)
	UpdateOrder(ctx context.Context, actor Actor, id uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error)
	ChangeStatus(ctx context.Context, actor Actor, id uuid.UUID, req ChangeStatusRequest) (*OrderResponse, error)
	BulkMarkDelivered(ctx context.Context, actor Actor, ids []uuid.UUID) (int, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]OrderResponse, int64, error)
	Dashboard(ctx context.Context) (*model.OrdersDashboard, error)
	UploadDesign(ctx context.Context, actor Actor, id uuid.UUID, filename string, src io.Reader) (string, error)
	Policy() *model.StatusPolicy
}

type orderService struct {
	orderRepo   repository.OrderRepository
	clientRepo  repository.ClientRepository
	paymentRepo repository.PaymentRepository
	statsRepo   repository.StatisticsRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	stock       *stockKeeper
	policy      *model.StatusPolicy
	events      EventPublisher
	mediaDir    string
	now         func() time.Time
}

// OrderServiceDeps groups the collaborators of the order service.
type OrderServiceDeps struct {
	OrderRepo    repository.OrderRepository
	ClientRepo   repository.ClientRepository
	ProductRepo  repository.ProductRepository
	MovementRepo repository.MovementRepository
	PaymentRepo  repository.PaymentRepository
	StatsRepo    repository.StatisticsRepository
	AuditRepo    repository.AuditRepository
	TxManager    repository.TransactionManager
	Policy       *model.StatusPolicy
	Events       EventPublisher
	MediaDir     string
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	policy := deps.Policy
	if policy == nil {
		policy = model.NewStatusPolicy(true)
	}
	return &orderService{
		orderRepo:   deps.OrderRepo,
		clientRepo:  deps.ClientRepo,
		paymentRepo: deps.PaymentRepo,
		statsRepo:   deps.StatsRepo,
		auditRepo:   deps.AuditRepo,
		txManager:   deps.TxManager,
		stock:       newStockKeeper(deps.ProductRepo, deps.MovementRepo),
		policy:      policy,
		events:      publisherOrNoop(deps.Events),
		mediaDir:    deps.MediaDir,
		now:         time.Now,
	}
}

func (s *orderService) Policy() *model.StatusPolicy {
	return s.policy
}

func (s *orderService) toResponse(o model.Order) OrderResponse {
	o.AdvancePaid = o.AdvancePaid.Round(2)
	o.TotalPrice = o.TotalPrice.Round(2)
	return OrderResponse{
		Order:          o,
		PendingBalance: o.PendingBalance(),
		FullyPaid:      o.IsFullyPaid(),
		Overdue:        o.IsOverdue(s.now()),
		AllowedNext:    s.policy.Allowed(o.Status),
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*OrderResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, validationError("invalid client_id")
	}
	if !model.IsValidEmbroideryType(req.EmbroideryType) {
		return nil, validationError("unknown embroidery type %q", req.EmbroideryType)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, validationError("description is required")
	}
	if req.PromisedDeliveryAt.IsZero() {
		return nil, validationError("promised delivery date is required")
	}
	if !req.TotalPrice.IsPositive() {
		return nil, validationError("total price must be greater than 0")
	}
	if req.AdvancePaid.IsNegative() || req.AdvancePaid.GreaterThan(req.TotalPrice) {
		return nil, validationError("advance must be between 0 and the total price")
	}
	if req.EstimatedHours.IsNegative() {
		return nil, validationError("estimated hours cannot be negative")
	}
	if err := checkCents("total price", req.TotalPrice); err != nil {
		return nil, err
	}
	if err := checkCents("advance", req.AdvancePaid); err != nil {
		return nil, err
	}
	if err := checkCents("estimated hours", req.EstimatedHours); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := checkCents("quantity", item.Quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice != nil {
			if err := checkCents("unit price", *item.UnitPrice); err != nil {
				return nil, err
			}
		}
	}
	advanceMethod := req.AdvanceMethod
	if advanceMethod == "" {
		advanceMethod = model.PaymentMethodCash
	}
	if !model.IsValidPaymentMethod(advanceMethod, false) {
		return nil, validationError("unknown payment method %q", advanceMethod)
	}

	now := s.now()
	order := &model.Order{
		ClientID:           clientID,
		OrderedAt:          now,
		PromisedDeliveryAt: req.PromisedDeliveryAt,
		EmbroideryType:     req.EmbroideryType,
		Description:        strings.TrimSpace(req.Description),
		Specifications:     req.Specifications,
		Status:             model.OrderStatusReceived,
		EstimatedHours:     req.EstimatedHours,
		TotalPrice:         req.TotalPrice,
		AdvancePaid:        req.AdvancePaid,
		InternalNotes:      req.InternalNotes,
	}

	var changes []*repository.StockChange
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clientRepo.FindByID(txCtx, clientID)
		if err != nil {
			return mapNotFound(err, "client")
		}
		if !client.Active {
			return validationError("client %s is inactive", client.Name)
		}

		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, itemReq := range req.Items {
			productID, err := uuid.Parse(itemReq.ProductID)
			if err != nil {
				return validationError("invalid product_id %q", itemReq.ProductID)
			}
			change, err := s.stock.consume(txCtx, actor, productID, itemReq.Quantity, model.MovementOutOrder,
				"Material for order", movementRef{OrderID: &order.ID})
			if err != nil {
				return err
			}
			changes = append(changes, change)

			unitPrice := change.Product.SalePrice
			if itemReq.UnitPrice != nil {
				if itemReq.UnitPrice.IsNegative() {
					return validationError("unit price cannot be negative")
				}
				unitPrice = *itemReq.UnitPrice
			}
			item := &model.OrderItem{
				OrderID:   order.ID,
				ProductID: productID,
				Quantity:  itemReq.Quantity,
				UnitPrice: unitPrice,
			}
			if err := s.orderRepo.CreateItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		if order.AdvancePaid.IsPositive() {
			payment := &model.Payment{
				OrderID: order.ID,
				Amount:  order.AdvancePaid,
				Method:  advanceMethod,
				Concept: "Advance",
				PaidAt:  now,
			}
			if err := s.paymentRepo.Create(txCtx, payment); err != nil {
				return fmt.Errorf("failed to record advance: %w", err)
			}
		}

		if err := s.clientRepo.TouchLastPurchase(txCtx, clientID, now); err != nil {
			return fmt.Errorf("failed to stamp client purchase: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateOrder, order.ID.String(), client.Name, req)
	})
	if err != nil {
		return nil, err
	}

	for _, change := range changes {
		if change.Product.NeedsRestock() {
			s.events.Publish(ws.EventStockLow, stockChangeResponse(change))
		}
	}
	log.Info().Str("order_id", order.ID.String()).Str("total", order.TotalPrice.String()).Msg("order placed")

	return s.GetOrder(ctx, order.ID)
}

func (s *orderService) UpdateOrder(ctx context.Context, actor Actor, id uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "order")
		}

		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" {
				return validationError("description is required")
			}
			order.Description = strings.TrimSpace(*req.Description)
		}
		if req.Specifications != nil {
			order.Specifications = *req.Specifications
		}
		if req.EmbroideryType != nil {
			if !model.IsValidEmbroideryType(*req.EmbroideryType) {
				return validationError("unknown embroidery type %q", *req.EmbroideryType)
			}
			order.EmbroideryType = *req.EmbroideryType
		}
		if req.PromisedDeliveryAt != nil {
			order.PromisedDeliveryAt = *req.PromisedDeliveryAt
		}
		if req.EstimatedHours != nil {
			if req.EstimatedHours.IsNegative() {
				return validationError("estimated hours cannot be negative")
			}
			if err := checkCents("estimated hours", *req.EstimatedHours); err != nil {
				return err
			}
			order.EstimatedHours = *req.EstimatedHours
		}
		if req.ActualHours != nil {
			if req.ActualHours.IsNegative() {
				return validationError("actual hours cannot be negative")
			}
			if err := checkCents("actual hours", *req.ActualHours); err != nil {
				return err
			}
			order.ActualHours = *req.ActualHours
		}
		if req.InternalNotes != nil {
			order.InternalNotes = *req.InternalNotes
		}
		if req.TotalPrice != nil {
			if !req.TotalPrice.IsPositive() {
				return validationError("total price must be greater than 0")
			}
			if err := checkCents("total price", *req.TotalPrice); err != nil {
				return err
			}
			if order.AdvancePaid.Round(2).GreaterThan(*req.TotalPrice) {
				return validationError("total price cannot be below the advance already paid (%s)", order.AdvancePaid.Round(2).StringFixed(2))
			}
			order.TotalPrice = *req.TotalPrice
		}

		if err := s.orderRepo.UpdateDetails(txCtx, order); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return conflictError("a payment changed the order while it was being edited")
			}
			return fmt.Errorf("failed to update order: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateOrder, order.ID.String(), order.Description, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *orderService) ChangeStatus(ctx context.Context, actor Actor, id uuid.UUID, req ChangeStatusRequest) (*OrderResponse, error) {
	target := strings.TrimSpace(req.Status)
	if !model.IsValidOrderStatus(target) {
		return nil, validationError("unknown status %q", target)
	}

	var from string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "order")
		}
		from = order.Status
		return s.transition(txCtx, actor, order, target, req.Note)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_id", id.String()).Str("from", from).Str("to", target).Msg("order status changed")
	s.events.Publish(ws.EventOrderStatusChanged, map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       target,
	})
	return s.GetOrder(ctx, id)
}

// transition applies one policy-checked status move inside a transaction.
func (s *orderService) transition(ctx context.Context, actor Actor, order *model.Order, target, note string) error {
	if !s.policy.CanTransition(order.Status, target) {
		return fmt.Errorf("%w: cannot move from %s to %s; allowed: %s",
			ErrInvalidTransition, order.Status, target, s.policy.AllowedString(order.Status))
	}

	delivery := order.ActualDeliveryAt
	switch target {
	case model.OrderStatusDelivered:
		if delivery == nil {
			now := s.now()
			delivery = &now
		}
	case model.OrderStatusCancelled:
		delivery = nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, target, delivery); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return conflictError("order status changed concurrently, reload and retry")
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return writeAudit(ctx, s.auditRepo, actor, model.ActionChangeStatus, order.ID.String(), order.Description, map[string]string{
		"from": order.Status,
		"to":   target,
		"note": note,
	})
}

func (s *orderService) BulkMarkDelivered(ctx context.Context, actor Actor, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, validationError("no orders given")
	}

	var moved []uuid.UUID
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		orders, err := s.orderRepo.FindByIDsWithStatus(txCtx, ids, model.OrderStatusFinished)
		if err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		for i := range orders {
			if err := s.transition(txCtx, actor, &orders[i], model.OrderStatusDelivered, "bulk delivery"); err != nil {
				return err
			}
			moved = append(moved, orders[i].ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range moved {
		s.events.Publish(ws.EventOrderStatusChanged, map[string]interface{}{
			"order_id": id,
			"from":     model.OrderStatusFinished,
			"to":       model.OrderStatusDelivered,
		})
	}
	log.Info().Int("requested", len(ids)).Int("delivered", len(moved)).Msg("orders marked delivered")
	return len(moved), nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "order")
	}
	res := s.toResponse(*order)
	return &res, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]OrderResponse, int64, error) {
	for _, st := range filter.Statuses {
		if !model.IsValidOrderStatus(st) {
			return nil, 0, validationError("unknown status %q", st)
		}
	}
	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	res := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, s.toResponse(o))
	}
	return res, total, nil
}

func (s *orderService) Dashboard(ctx context.Context) (*model.OrdersDashboard, error) {
	now := s.now()
	today := startOfDay(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	weekEnd := today.AddDate(0, 0, 8)
	threeDays := today.AddDate(0, 0, 4)

	dash := &model.OrdersDashboard{}
	counters := []struct {
		dst    *int64
		filter repository.OrderCountFilter
	}{
		{&dash.TotalOrders, repository.OrderCountFilter{}},
		{&dash.ActiveOrders, repository.OrderCountFilter{Statuses: model.ActiveOrderStatuses}},
		{&dash.OrdersThisMonth, repository.OrderCountFilter{OrderedFrom: &monthStart}},
		{&dash.DueToday, repository.OrderCountFilter{
			Statuses:     []string{model.OrderStatusInProcess, model.OrderStatusFinished},
			PromisedFrom: &today, PromisedUntil: &tomorrow,
		}},
		{&dash.DueThisWeek, repository.OrderCountFilter{
			Statuses:     model.ActiveOrderStatuses,
			PromisedFrom: &today, PromisedUntil: &weekEnd,
		}},
		{&dash.DueWithin3Days, repository.OrderCountFilter{
			Statuses:     []string{model.OrderStatusReceived, model.OrderStatusInDesign, model.OrderStatusApproved, model.OrderStatusInProcess},
			PromisedFrom: &today, PromisedUntil: &threeDays,
		}},
	}
	for _, c := range counters {
		n, err := s.statsRepo.CountOrders(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count orders: %w", err)
		}
		*c.dst = n
	}

	byStatus, err := s.statsRepo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	dash.ByStatus = byStatus

	totals, err := s.statsRepo.OrderTotals(ctx)
	if err != nil {
		return nil, err
	}
	dash.TotalBilled = totals.Billed
	dash.TotalCollected = totals.Collected
	dash.TotalPending = totals.Billed.Sub(totals.Collected)
	dash.AverageOrderValue = decimal.Zero
	dash.CollectedPercent = decimal.Zero
	if totals.Count > 0 {
		dash.AverageOrderValue = totals.Billed.Div(decimal.NewFromInt(totals.Count)).Round(2)
	}
	if totals.Billed.IsPositive() {
		dash.CollectedPercent = totals.Collected.Div(totals.Billed).Mul(hundred).Round(2)
	}
	return dash, nil
}

func (s *orderService) UploadDesign(ctx context.Context, actor Actor, id uuid.UUID, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !designExtensions[ext] {
		return "", validationError("unsupported design file type %q", ext)
	}
	if s.mediaDir == "" {
		return "", fmt.Errorf("media directory is not configured")
	}
	if _, err := s.orderRepo.FindByID(ctx, id); err != nil {
		return "", mapNotFound(err, "order")
	}

	dir := filepath.Join(s.mediaDir, "orders", id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create design directory: %w", err)
	}
	name := fmt.Sprintf("design-%d%s", s.now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create design file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to write design file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to write design file: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join("orders", id.String(), name))
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.SetDesignFile(txCtx, id, rel); err != nil {
			return fmt.Errorf("failed to attach design: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUploadDesign, id.String(), filename, map[string]string{"file": rel})
	})
	if err != nil {
		return "", err
	}
	return rel, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
