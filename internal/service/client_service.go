package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateClientRequest struct {
	Name            string          `json:"name" binding:"required,min=2,max=100"`
	Phone           string          `json:"phone" binding:"required"`
	Email           string          `json:"email" binding:"omitempty,email"`
	Address         string          `json:"address"`
	Category        string          `json:"category" binding:"omitempty,oneof=individual business wholesale"`
	SpecialDiscount decimal.Decimal `json:"special_discount" binding:"gte=0,lte=100"`
	Notes           string          `json:"notes"`
}

// UpdateClientRequest is a partial update; nil fields are left unchanged.
type UpdateClientRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=2,max=100"`
	Phone           *string          `json:"phone"`
	Email           *string          `json:"email" binding:"omitempty,email"`
	Address         *string          `json:"address"`
	Category        *string          `json:"category" binding:"omitempty,oneof=individual business wholesale"`
	SpecialDiscount *decimal.Decimal `json:"special_discount"`
	Notes           *string          `json:"notes"`
	Active          *bool            `json:"active"`
}

// ClientSummary is the compact form used by pickers.
type ClientSummary struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Category        string          `json:"category"`
	SpecialDiscount decimal.Decimal `json:"special_discount"`
}

// ClientHistory is a client's order history with totals.
type ClientHistory struct {
	Client        *model.Client   `json:"client"`
	Orders        []model.Order   `json:"orders"`
	OrderCount    int             `json:"order_count"`
	TotalBilled   decimal.Decimal `json:"total_billed"`
	TotalPending  decimal.Decimal `json:"total_pending"`
	PendingOrders int             `json:"pending_orders"`
}

type ClientService interface {
	CreateClient(ctx context.Context, actor Actor, req CreateClientRequest) (*model.Client, error)
	UpdateClient(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error)
	ListClients(ctx context.Context, filter repository.ClientFilter) ([]model.Client, int64, error)
	DeactivateClient(ctx context.Context, actor Actor, id uuid.UUID) error
	ListActiveSummaries(ctx context.Context) ([]ClientSummary, error)
	GetStatistics(ctx context.Context) (*model.ClientStatistics, error)
	GetHistory(ctx context.Context, id uuid.UUID) (*ClientHistory, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	orderRepo  repository.OrderRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewClientService(
	clientRepo repository.ClientRepository,
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ClientService {
	return &clientService{
		clientRepo: clientRepo,
		orderRepo:  orderRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

func (s *clientService) CreateClient(ctx context.Context, actor Actor, req CreateClientRequest) (*model.Client, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if err := validateDiscount(req.SpecialDiscount); err != nil {
		return nil, err
	}
	category := req.Category
	if category == "" {
		category = model.ClientCategoryIndividual
	}
	if !model.IsValidClientCategory(category) {
		return nil, validationError("unknown client category %q", category)
	}

	client := &model.Client{
		Name:            name,
		Phone:           phone,
		Email:           normalizeEmail(req.Email),
		Address:         strings.TrimSpace(req.Address),
		Category:        category,
		SpecialDiscount: req.SpecialDiscount,
		Active:          true,
		Notes:           req.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkUnique(txCtx, uuid.Nil, client.Phone, client.Email); err != nil {
			return err
		}
		if err := s.clientRepo.Create(txCtx, client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateClient, client.ID.String(), client.Name, req)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("client_id", client.ID.String()).Str("name", client.Name).Msg("client created")
	return client, nil
}

func (s *clientService) UpdateClient(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClientRequest) (*model.Client, error) {
	var client *model.Client
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		client, err = s.clientRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "client")
		}

		if req.Name != nil {
			if client.Name, err = normalizeName(*req.Name); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			if client.Phone, err = normalizePhone(*req.Phone); err != nil {
				return err
			}
		}
		if req.Email != nil {
			client.Email = normalizeEmail(*req.Email)
		}
		if req.Address != nil {
			client.Address = strings.TrimSpace(*req.Address)
		}
		if req.Category != nil {
			if !model.IsValidClientCategory(*req.Category) {
				return validationError("unknown client category %q", *req.Category)
			}
			client.Category = *req.Category
		}
		if req.SpecialDiscount != nil {
			if err := validateDiscount(*req.SpecialDiscount); err != nil {
				return err
			}
			client.SpecialDiscount = *req.SpecialDiscount
		}
		if req.Notes != nil {
			client.Notes = *req.Notes
		}
		if req.Active != nil {
			client.Active = *req.Active
		}

		if err := s.checkUnique(txCtx, client.ID, client.Phone, client.Email); err != nil {
			return err
		}
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateClient, client.ID.String(), client.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// checkUnique rejects a phone or email already used by another client.
func (s *clientService) checkUnique(ctx context.Context, self uuid.UUID, phone string, email *string) error {
	existing, err := s.clientRepo.FindByPhone(ctx, phone)
	if err == nil && existing.ID != self {
		return conflictError("phone %s already belongs to client %s", phone, existing.Name)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check phone: %w", err)
	}

	if email == nil {
		return nil
	}
	existing, err = s.clientRepo.FindByEmail(ctx, *email)
	if err == nil && existing.ID != self {
		return conflictError("email %s already belongs to client %s", *email, existing.Name)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

func (s *clientService) GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "client")
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, filter repository.ClientFilter) ([]model.Client, int64, error) {
	if filter.Category != "" && !model.IsValidClientCategory(filter.Category) {
		return nil, 0, validationError("unknown client category %q", filter.Category)
	}
	return s.clientRepo.List(ctx, filter)
}

func (s *clientService) DeactivateClient(ctx context.Context, actor Actor, id uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clientRepo.FindByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "client")
		}
		client.Active = false
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to deactivate client: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeactivateClient, client.ID.String(), client.Name, map[string]bool{"active": false})
	})
}

func (s *clientService) ListActiveSummaries(ctx context.Context) ([]ClientSummary, error) {
	clients, err := s.clientRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClientSummary, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientSummary{
			ID:              c.ID,
			Name:            c.Name,
			Phone:           c.Phone,
			Category:        c.Category,
			SpecialDiscount: c.SpecialDiscount,
		})
	}
	return out, nil
}

func (s *clientService) GetStatistics(ctx context.Context) (*model.ClientStatistics, error) {
	total, err := s.clientRepo.Count(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	active := true
	activeCount, err := s.clientRepo.Count(ctx, &active, nil)
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -30)
	recent, err := s.clientRepo.Count(ctx, nil, &since)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.clientRepo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	return &model.ClientStatistics{
		Total:         total,
		Active:        activeCount,
		NewLast30Days: recent,
		ByCategory:    byCategory,
	}, nil
}

func (s *clientService) GetHistory(ctx context.Context, id uuid.UUID) (*ClientHistory, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "client")
	}
	orders, err := s.orderRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, err
	}

	history := &ClientHistory{
		Client:       client,
		Orders:       orders,
		OrderCount:   len(orders),
		TotalBilled:  decimal.Zero,
		TotalPending: decimal.Zero,
	}
	for _, o := range orders {
		if o.Status == model.OrderStatusCancelled {
			continue
		}
		history.TotalBilled = history.TotalBilled.Add(o.TotalPrice)
		if balance := o.PendingBalance(); balance.IsPositive() {
			history.TotalPending = history.TotalPending.Add(balance)
		}
		if o.Status != model.OrderStatusDelivered {
			history.PendingOrders++
		}
	}
	return history, nil
}
