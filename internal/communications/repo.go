package communications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Repository exposes persistence helpers for communications. Rows are
// immutable; there is no update path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, comm *models.Communication) error
	CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error
	Get(ctx context.Context, id uuid.UUID) (*models.Communication, error)
	List(ctx context.Context, params listParams) ([]models.Communication, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a communications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Type      *enums.CommunicationType
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, comm *models.Communication) error {
	if comm.ID == uuid.Nil {
		comm.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(comm).Error
}

// CreateTx writes inside another service's transaction. A nil tx writes
// standalone.
func (r *repositoryImpl) CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error {
	return r.WithTx(tx).Create(ctx, comm)
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Communication, error) {
	var comm models.Communication
	if err := r.db.WithContext(ctx).First(&comm, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comm, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Communication, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Communication{})
	if params.DealID != nil {
		query = query.Where("deal_id = ?", *params.DealID)
	}
	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var comms []models.Communication
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&comms).Error; err != nil {
		return nil, nil, err
	}

	if len(comms) > normalized {
		next := comms[normalized]
		comms = comms[:normalized]
		return comms, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return comms, nil, nil
}
