package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Communication is one email, text, call, or internal note. Rows are
// immutable once written; corrections get a new row.
type Communication struct {
	ID                uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DealID            *uuid.UUID                   `gorm:"column:deal_id;type:uuid"`
	ContactID         *uuid.UUID                   `gorm:"column:contact_id;type:uuid"`
	Type              enums.CommunicationType      `gorm:"column:type;not null"`
	Direction         enums.CommunicationDirection `gorm:"column:direction;not null"`
	Subject           *string                      `gorm:"column:subject"`
	Body              *string                      `gorm:"column:body"`
	Summary           *string                      `gorm:"column:summary"`
	Status            enums.CommunicationStatus    `gorm:"column:status;not null;default:logged"`
	DurationSeconds   *int                         `gorm:"column:duration_seconds"`
	FromAddress       *string                      `gorm:"column:from_address"`
	ToAddress         *string                      `gorm:"column:to_address"`
	ProviderMessageID *string                      `gorm:"column:provider_message_id"`
	ProviderThreadID  *string                      `gorm:"column:provider_thread_id"`
	Attachments       dbtypes.StringList           `gorm:"column:attachments;type:text"`
	SentAt            *time.Time                   `gorm:"column:sent_at"`
	CreatedAt         time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}
