package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Deal is one sales opportunity moving through the pipeline.
type Deal struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title             string             `gorm:"column:title;not null"`
	ContactID         *uuid.UUID         `gorm:"column:contact_id;type:uuid"`
	Stage             enums.DealStage    `gorm:"column:stage;not null;default:lead"`
	Status            enums.DealStatus   `gorm:"column:status;not null;default:active"`
	Priority          enums.TaskPriority `gorm:"column:priority;not null;default:medium"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null;default:0"`
	Probability       int                `gorm:"column:probability;not null;default:0"`
	ProductCategories pq.StringArray     `gorm:"column:product_categories;type:text[]"`
	Notes             *string            `gorm:"column:notes"`
	ExpectedCloseDate *time.Time         `gorm:"column:expected_close_date"`
	LostReason        *string            `gorm:"column:lost_reason"`
	ClosedAt          *time.Time         `gorm:"column:closed_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
