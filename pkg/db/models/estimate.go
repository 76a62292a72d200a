package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Estimate is a lightweight quote for a customer, usually attached to a
// deal. It never leaves the CRM on its own; the office exports it to
// whatever the customer wants to sign.
type Estimate struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstimateNumber string               `gorm:"column:estimate_number;not null;uniqueIndex"`
	DealID         *uuid.UUID           `gorm:"column:deal_id;type:uuid"`
	ContactID      *uuid.UUID           `gorm:"column:contact_id;type:uuid"`
	Status         enums.EstimateStatus `gorm:"column:status;not null;default:draft"`
	LineItems      dbtypes.LineItems    `gorm:"column:line_items;type:text"`
	Subtotal       decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	TaxRate        decimal.Decimal      `gorm:"column:tax_rate;type:numeric(6,4);not null;default:0"`
	TaxAmount      decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal      `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Notes          *string              `gorm:"column:notes"`
	Terms          *string              `gorm:"column:terms"`
	ValidUntil     *time.Time           `gorm:"column:valid_until"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
