package shipments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// terminalStatuses are excluded from "active" views.
var terminalStatuses = []enums.ShipmentStatus{
	enums.ShipmentStatusDelivered,
	enums.ShipmentStatusFailed,
	enums.ShipmentStatusReturned,
	enums.ShipmentStatusCancelled,
}

// Repository exposes persistence helpers for shipments. The purchase-order
// helper lives here too so the delivered cascade can stay in one package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.Shipment) error
	CreateTx(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, params listParams) ([]models.Shipment, *pagination.Cursor, error)
	ListByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]models.Shipment, error)
	ListActive(ctx context.Context, limit int) ([]models.Shipment, error)
	Update(ctx context.Context, shipment *models.Shipment) error
	MarkPurchaseOrderReceived(ctx context.Context, poID uuid.UUID, now time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a shipments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Status     *enums.ShipmentStatus
	DealID     *uuid.UUID
	ContactID  *uuid.UUID
	ActiveOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(shipment).Error
}

// CreateTx writes inside another service's transaction. A nil tx writes
// standalone.
func (r *repositoryImpl) CreateTx(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
	return r.WithTx(tx).Create(ctx, shipment)
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Shipment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Shipment{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.DealID != nil {
		query = query.Where("deal_id = ?", *params.DealID)
	}
	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}
	if params.ActiveOnly {
		query = query.Where("status NOT IN ?", terminalStatuses)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var shipments []models.Shipment
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&shipments).Error; err != nil {
		return nil, nil, err
	}

	if len(shipments) > normalized {
		next := shipments[normalized]
		shipments = shipments[:normalized]
		return shipments, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return shipments, nil, nil
}

func (r *repositoryImpl) ListByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", poID).
		Order("created_at DESC").
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *repositoryImpl) ListActive(ctx context.Context, limit int) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Order("created_at DESC").
		Limit(limit).
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *repositoryImpl) Update(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}

func (r *repositoryImpl) MarkPurchaseOrderReceived(ctx context.Context, poID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", poID).
		Updates(map[string]any{
			"status":      enums.PurchaseOrderStatusReceived,
			"received_at": now,
			"updated_at":  now,
		}).Error
}
