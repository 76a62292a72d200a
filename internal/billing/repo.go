package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Repository exposes persistence helpers for estimates and invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEstimate(ctx context.Context, estimate *models.Estimate) error
	ListEstimates(ctx context.Context, params listParams) ([]models.Estimate, *pagination.Cursor, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, params listParams) ([]models.Invoice, *pagination.Cursor, error)
	UpdateInvoice(ctx context.Context, invoice *models.Invoice) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateEstimate(ctx context.Context, estimate *models.Estimate) error {
	if estimate.ID == uuid.Nil {
		estimate.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(estimate).Error
}

func (r *repositoryImpl) ListEstimates(ctx context.Context, params listParams) ([]models.Estimate, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.scoped(ctx, &models.Estimate{}, params)

	var estimates []models.Estimate
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&estimates).Error; err != nil {
		return nil, nil, err
	}

	if len(estimates) > normalized {
		next := estimates[normalized]
		estimates = estimates[:normalized]
		return estimates, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return estimates, nil, nil
}

func (r *repositoryImpl) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repositoryImpl) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) ListInvoices(ctx context.Context, params listParams) ([]models.Invoice, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.scoped(ctx, &models.Invoice{}, params)

	var invoices []models.Invoice
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, nil, err
	}

	if len(invoices) > normalized {
		next := invoices[normalized]
		invoices = invoices[:normalized]
		return invoices, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return invoices, nil, nil
}

func (r *repositoryImpl) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *repositoryImpl) scoped(ctx context.Context, model any, params listParams) *gorm.DB {
	query := r.db.WithContext(ctx).Model(model)
	if params.DealID != nil {
		query = query.Where("deal_id = ?", *params.DealID)
	}
	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}
	return query
}
