package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Task is a follow-up item, either hand-entered or generated from a
// deal's stage.
type Task struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DealID       *uuid.UUID         `gorm:"column:deal_id;type:uuid"`
	ContactID    *uuid.UUID         `gorm:"column:contact_id;type:uuid"`
	Title        string             `gorm:"column:title;not null"`
	Description  *string            `gorm:"column:description"`
	Type         string             `gorm:"column:type;not null;default:follow_up"`
	Priority     enums.TaskPriority `gorm:"column:priority;not null;default:medium"`
	Status       enums.TaskStatus   `gorm:"column:status;not null;default:pending"`
	AssignedTo   *string            `gorm:"column:assigned_to"`
	DueDate      *time.Time         `gorm:"column:due_date"`
	SnoozedUntil *time.Time         `gorm:"column:snoozed_until"`
	CompletedAt  *time.Time         `gorm:"column:completed_at"`
	AIGenerated  bool               `gorm:"column:ai_generated;not null;default:false"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
