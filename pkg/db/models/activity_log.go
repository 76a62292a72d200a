package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// ActivityLog is the append-only audit trail behind contact and deal
// timelines.
type ActivityLog struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DealID      *uuid.UUID       `gorm:"column:deal_id;type:uuid"`
	ContactID   *uuid.UUID       `gorm:"column:contact_id;type:uuid"`
	EntityType  enums.EntityType `gorm:"column:entity_type;not null"`
	EntityID    *uuid.UUID       `gorm:"column:entity_id;type:uuid"`
	Action      string           `gorm:"column:action;not null"`
	Description string           `gorm:"column:description;not null"`
	OldValue    *string          `gorm:"column:old_value"`
	NewValue    *string          `gorm:"column:new_value"`
	PerformedBy string           `gorm:"column:performed_by;not null;default:system"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}
