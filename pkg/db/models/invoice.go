package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Invoice bills a customer for a deal, optionally carrying the estimate it
// grew out of. AmountDue starts at Total and drops to zero when the invoice
// is marked paid; partial payments are not tracked.
type Invoice struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber  string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	EstimateID     *uuid.UUID          `gorm:"column:estimate_id;type:uuid"`
	DealID         *uuid.UUID          `gorm:"column:deal_id;type:uuid"`
	ContactID      *uuid.UUID          `gorm:"column:contact_id;type:uuid"`
	Status         enums.InvoiceStatus `gorm:"column:status;not null;default:draft"`
	LineItems      dbtypes.LineItems   `gorm:"column:line_items;type:text"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	TaxRate        decimal.Decimal     `gorm:"column:tax_rate;type:numeric(6,4);not null;default:0"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	AmountPaid     decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	AmountDue      decimal.Decimal     `gorm:"column:amount_due;type:numeric(12,2);not null;default:0"`
	DueDate        *time.Time          `gorm:"column:due_date"`
	Notes          *string             `gorm:"column:notes"`
	Terms          *string             `gorm:"column:terms"`

	PaidAt           *time.Time `gorm:"column:paid_at"`
	PaymentMethod    *string    `gorm:"column:payment_method"`
	PaymentReference *string    `gorm:"column:payment_reference"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
