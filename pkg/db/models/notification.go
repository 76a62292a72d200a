package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Notification stores in-app notification payloads for the office UI.
type Notification struct {
	ID         uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type       enums.NotificationType     `gorm:"column:type;not null"`
	Title      string                     `gorm:"column:title;not null"`
	Message    string                     `gorm:"column:message;not null"`
	EntityType *enums.EntityType          `gorm:"column:entity_type"`
	EntityID   *uuid.UUID                 `gorm:"column:entity_id;type:uuid"`
	Priority   enums.NotificationPriority `gorm:"column:priority;not null;default:normal"`
	ActionURL  *string                    `gorm:"column:action_url"`
	ReadAt     *time.Time                 `gorm:"column:read_at"`
	CreatedAt  time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
