package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	ws "dotaciones/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type RecordPaymentRequest struct {
	OrderID string          `json:"order_id" binding:"required,uuid"`
	Amount  decimal.Decimal `json:"amount" binding:"gt=0"`
	Method  string          `json:"method" binding:"required,oneof=cash transfer card"`
	Concept string          `json:"concept" binding:"max=200"`
	Notes   string          `json:"notes"`
}

// PaymentResult is the recorded payment plus the order's new balance.
type PaymentResult struct {
	Payment        model.Payment   `json:"payment"`
	AdvancePaid    decimal.Decimal `json:"advance_paid"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	FullyPaid      bool            `json:"fully_paid"`
}

type PaymentService interface {
	RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (*PaymentResult, error)
	ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]model.Payment, int64, error)
}

type paymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNoop(events),
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (*PaymentResult, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, validationError("invalid order_id")
	}
	if !req.Amount.IsPositive() {
		return nil, validationError("amount must be greater than 0")
	}
	if err := checkCents("amount", req.Amount); err != nil {
		return nil, err
	}
	if !model.IsValidPaymentMethod(req.Method, false) {
		return nil, validationError("unknown payment method %q", req.Method)
	}
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		concept = "Partial payment"
	}

	payment := model.Payment{
		OrderID: orderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Concept: concept,
		Notes:   req.Notes,
		PaidAt:  time.Now(),
	}

	var order *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.orderRepo.FindByID(txCtx, orderID)
		if err != nil {
			return mapNotFound(err, "order")
		}
		if current.Status == model.OrderStatusCancelled {
			return validationError("cancelled orders do not accept payments")
		}
		if balance := current.PendingBalance().Round(2); req.Amount.GreaterThan(balance) {
			return fmt.Errorf("%w: amount %s, pending %s", ErrPaymentExceedsBalance, req.Amount.StringFixed(2), balance.StringFixed(2))
		}

		if err := s.orderRepo.AddAdvance(txCtx, orderID, req.Amount); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return fmt.Errorf("%w: the order balance changed, reload and retry", ErrPaymentExceedsBalance)
			}
			return fmt.Errorf("failed to accrue payment: %w", err)
		}
		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		order, err = s.orderRepo.FindByID(txCtx, orderID)
		if err != nil {
			return mapNotFound(err, "order")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRecordPayment, payment.ID.String(), order.Description, req)
	})
	if err != nil {
		return nil, err
	}

	order.AdvancePaid = order.AdvancePaid.Round(2)
	result := &PaymentResult{
		Payment:        payment,
		AdvancePaid:    order.AdvancePaid,
		PendingBalance: order.PendingBalance(),
		FullyPaid:      order.IsFullyPaid(),
	}

	log.Info().Str("order_id", orderID.String()).Str("amount", req.Amount.String()).Str("pending", result.PendingBalance.String()).Msg("payment recorded")
	s.events.Publish(ws.EventPaymentRecorded, result)
	return result, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]model.Payment, int64, error) {
	return s.paymentRepo.List(ctx, filter)
}
