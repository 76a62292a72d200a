package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
)

// Contact is a person the business talks to: barn owners, trainers,
// facility managers. Suppliers live in their own table.
type Contact struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName        string             `gorm:"column:first_name;not null"`
	LastName         string             `gorm:"column:last_name;not null"`
	Email            *string            `gorm:"column:email"`
	Phone            *string            `gorm:"column:phone"`
	Mobile           *string            `gorm:"column:mobile"`
	Title            *string            `gorm:"column:title"`
	Company          *string            `gorm:"column:company"`
	Type             enums.ContactType  `gorm:"column:type;not null;default:lead"`
	Address          *string            `gorm:"column:address"`
	City             *string            `gorm:"column:city"`
	State            *string            `gorm:"column:state"`
	Zip              *string            `gorm:"column:zip"`
	Notes            *string            `gorm:"column:notes"`
	Tags             dbtypes.StringList `gorm:"column:tags;type:text"`
	Source           *string            `gorm:"column:source"`
	PreferredContact *string            `gorm:"column:preferred_contact"`
	LastContactedAt  *time.Time         `gorm:"column:last_contacted_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName joins the name parts for display and templated task titles.
func (c Contact) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
