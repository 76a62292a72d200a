package deals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Repository exposes persistence helpers for deals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deal *models.Deal) error
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, params listParams) ([]models.Deal, *pagination.Cursor, error)
	ListActive(ctx context.Context) ([]models.Deal, error)
	ListStale(ctx context.Context, stage enums.DealStage, before time.Time) ([]models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) error
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a deals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Stage     *enums.DealStage
	Status    *enums.DealStatus
	ContactID *uuid.UUID
	Search    string
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, deal *models.Deal) error {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(deal).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Deal, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Deal{})
	if params.Stage != nil {
		query = query.Where("stage = ?", *params.Stage)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var deals []models.Deal
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&deals).Error; err != nil {
		return nil, nil, err
	}

	if len(deals) > normalized {
		next := deals[normalized]
		deals = deals[:normalized]
		return deals, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return deals, nil, nil
}

func (r *repositoryImpl) ListActive(ctx context.Context) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.DealStatusActive).
		Order("created_at DESC").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *repositoryImpl) ListStale(ctx context.Context, stage enums.DealStage, before time.Time) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.WithContext(ctx).
		Where("status = ? AND stage = ? AND updated_at < ?", enums.DealStatusActive, stage, before).
		Order("updated_at ASC").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *repositoryImpl) Update(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

// GetTx reads inside another service's transaction. A nil tx reads standalone.
func (r *repositoryImpl) GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error) {
	return r.WithTx(tx).Get(ctx, id)
}

// UpdateTx writes inside another service's transaction.
func (r *repositoryImpl) UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error {
	return r.WithTx(tx).Update(ctx, deal)
}
