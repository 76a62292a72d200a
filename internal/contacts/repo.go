package contacts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Repository exposes persistence helpers for contacts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contact *models.Contact) error
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	FindByPhone(ctx context.Context, phone string) (*models.Contact, error)
	List(ctx context.Context, params listParams) ([]models.Contact, *pagination.Cursor, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a contacts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Search string
	Type   string
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repositoryImpl) FindByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("phone = ? OR mobile = ?", phone, phone).
		Order("created_at ASC").
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Contact, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Contact{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR company ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var contacts []models.Contact
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&contacts).Error; err != nil {
		return nil, nil, err
	}

	if len(contacts) > normalized {
		next := contacts[normalized]
		contacts = contacts[:normalized]
		return contacts, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return contacts, nil, nil
}

func (r *repositoryImpl) Update(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Contact{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ?", id).
		UpdateColumn("last_contacted_at", now).Error
}
