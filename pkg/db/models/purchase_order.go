package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// PurchaseOrder is an order placed with a supplier, usually on behalf of a
// deal. Status milestones each stamp their own timestamp column so the
// office can see how long a supplier sat on a quote.
type PurchaseOrder struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PONumber            string                    `gorm:"column:po_number;not null;uniqueIndex"`
	DealID              *uuid.UUID                `gorm:"column:deal_id;type:uuid"`
	SupplierID          *uuid.UUID                `gorm:"column:supplier_id;type:uuid"`
	Status              enums.PurchaseOrderStatus `gorm:"column:status;not null;default:draft"`
	LineItems           dbtypes.LineItems         `gorm:"column:line_items;type:text"`
	Subtotal            decimal.Decimal           `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	Tax                 decimal.Decimal           `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Shipping            decimal.Decimal           `gorm:"column:shipping;type:numeric(12,2);not null;default:0"`
	Total               decimal.Decimal           `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Notes               *string                   `gorm:"column:notes"`
	SupplierNotes       *string                   `gorm:"column:supplier_notes"`
	SupplierOrderNumber *string                   `gorm:"column:supplier_order_number"`
	ShippingCarrier     *string                   `gorm:"column:shipping_carrier"`
	ExpectedDelivery    *time.Time                `gorm:"column:expected_delivery"`
	TrackingNumbers     dbtypes.StringList        `gorm:"column:tracking_numbers;type:text"`

	QuoteRequestedAt *time.Time `gorm:"column:quote_requested_at"`
	QuoteReceivedAt  *time.Time `gorm:"column:quote_received_at"`
	ApprovedAt       *time.Time `gorm:"column:approved_at"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at"`
	ConfirmedAt      *time.Time `gorm:"column:confirmed_at"`
	ShippedAt        *time.Time `gorm:"column:shipped_at"`
	ReceivedAt       *time.Time `gorm:"column:received_at"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
