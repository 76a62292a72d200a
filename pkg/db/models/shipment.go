package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Shipment tracks one parcel or freight load. TrackingHistory is kept
// newest-first; every status change prepends an event.
type Shipment struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID   *uuid.UUID             `gorm:"column:purchase_order_id;type:uuid"`
	DealID            *uuid.UUID             `gorm:"column:deal_id;type:uuid"`
	ContactID         *uuid.UUID             `gorm:"column:contact_id;type:uuid"`
	Carrier           string                 `gorm:"column:carrier;not null"`
	TrackingNumber    string                 `gorm:"column:tracking_number;not null"`
	TrackingURL       *string                `gorm:"column:tracking_url"`
	Status            enums.ShipmentStatus   `gorm:"column:status;not null;default:pending"`
	LastStatus        *string                `gorm:"column:last_status"`
	CurrentLocation   *string                `gorm:"column:current_location"`
	LastCheckedAt     *time.Time             `gorm:"column:last_checked_at"`
	EstimatedDelivery *time.Time             `gorm:"column:estimated_delivery"`
	ActualDelivery    *time.Time             `gorm:"column:actual_delivery"`
	CustomerNotified  bool                   `gorm:"column:customer_notified;not null;default:false"`
	Notes             *string                `gorm:"column:notes"`
	TrackingHistory   dbtypes.TrackingEvents `gorm:"column:tracking_history;type:text"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
