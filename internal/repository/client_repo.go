package repository

import (
	"context"
	"strings"
	"time"

	"dotaciones/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientFilter narrows client listings. Zero values mean "no filter".
type ClientFilter struct {
	Active   *bool
	Category string
	Search   string
	Page     int
	Limit    int
}

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	FindByPhone(ctx context.Context, phone string) (*model.Client, error)
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error)
	ListActive(ctx context.Context) ([]model.Client, error)
	TouchLastPurchase(ctx context.Context, id uuid.UUID, at time.Time) error
	Count(ctx context.Context, active *bool, since *time.Time) (int64, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).Where("phone = ?", phone).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).Where("email = ?", email).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error) {
	var clients []model.Client
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Client{})
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		p := likePattern(s)
		db = db.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", p, p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("registered_at desc").Scopes(paginate(filter.Page, filter.Limit)).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}

func (r *clientRepository) ListActive(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := GetDB(ctx, r.db).Where("active = ?", true).Order("name asc").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) TouchLastPurchase(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Client{}).Where("id = ?", id).Update("last_purchase_at", at).Error
}

func (r *clientRepository) Count(ctx context.Context, active *bool, since *time.Time) (int64, error) {
	var total int64
	db := GetDB(ctx, r.db).Model(&model.Client{})
	if active != nil {
		db = db.Where("active = ?", *active)
	}
	if since != nil {
		db = db.Where("registered_at >= ?", *since)
	}
	err := db.Count(&total).Error
	return total, err
}

func (r *clientRepository) CountByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Client{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Category] = row.Count
	}
	return out, nil
}
