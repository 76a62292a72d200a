package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/internal/communications"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines contact CRUD and timeline operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Contact, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Timeline(ctx context.Context, id uuid.UUID, limit int) (*TimelineResult, error)
}

type service struct {
	repo     Repository
	activity activity.Service
	comms    communications.Service
}

// CreateInput carries new-contact fields.
type CreateInput struct {
	FirstName        string
	LastName         string
	Email            *string
	Phone            *string
	Mobile           *string
	Title            *string
	Company          *string
	Type             string
	Address          *string
	City             *string
	State            *string
	Zip              *string
	Notes            *string
	Tags             []string
	Source           *string
	PreferredContact *string
}

// UpdateInput mirrors CreateInput; nil leaves a field unchanged.
type UpdateInput struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	Mobile           *string
	Title            *string
	Company          *string
	Type             *string
	Address          *string
	City             *string
	State            *string
	Zip              *string
	Notes            *string
	Tags             []string
	Source           *string
	PreferredContact *string
}

// ListParams filters the contact list.
type ListParams struct {
	Search string
	Type   string
	Limit  int
	Cursor string
}

// ListResult wraps returned contacts and the cursor for the next page.
type ListResult struct {
	Items  []models.Contact `json:"items"`
	Cursor string           `json:"cursor"`
}

// TimelineResult interleaves a contact's activity and communications,
// newest first within each list.
type TimelineResult struct {
	Contact        *models.Contact        `json:"contact"`
	Activity       []models.ActivityLog   `json:"activity"`
	Communications []models.Communication `json:"communications"`
}

// NewService wires contacts dependencies.
func NewService(repo Repository, activitySvc activity.Service, commsSvc communications.Service) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contacts repository required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	if commsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications service required")
	}
	return &service{repo: repo, activity: activitySvc, comms: commsSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Contact, error) {
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact name is required")
	}

	contactType := enums.ContactTypeLead
	if input.Type != "" {
		parsed, err := enums.ParseContactType(input.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contact type")
		}
		contactType = parsed
	}

	contact := models.Contact{
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Email:            input.Email,
		Phone:            input.Phone,
		Mobile:           input.Mobile,
		Title:            input.Title,
		Company:          input.Company,
		Type:             contactType,
		Address:          input.Address,
		City:             input.City,
		State:            input.State,
		Zip:              input.Zip,
		Notes:            input.Notes,
		Tags:             dbtypes.StringList(input.Tags),
		Source:           input.Source,
		PreferredContact: input.PreferredContact,
	}
	if err := s.repo.Create(ctx, &contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact")
	}

	entry := activity.Entry{
		ContactID:   &contact.ID,
		EntityType:  enums.EntityTypeContact,
		EntityID:    &contact.ID,
		Action:      "created",
		Description: "Contact " + contact.FullName() + " created",
	}
	if err := s.activity.Log(ctx, nil, entry); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get contact")
	}
	return contact, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		Search: strings.TrimSpace(params.Search),
		Type:   params.Type,
		Limit:  params.Limit,
	}
	if params.Type != "" {
		if _, err := enums.ParseContactType(params.Type); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contacts")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Contact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		contact.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		contact.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Type != nil {
		parsed, err := enums.ParseContactType(*input.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contact type")
		}
		contact.Type = parsed
	}
	if input.Email != nil {
		contact.Email = input.Email
	}
	if input.Phone != nil {
		contact.Phone = input.Phone
	}
	if input.Mobile != nil {
		contact.Mobile = input.Mobile
	}
	if input.Title != nil {
		contact.Title = input.Title
	}
	if input.Company != nil {
		contact.Company = input.Company
	}
	if input.Address != nil {
		contact.Address = input.Address
	}
	if input.City != nil {
		contact.City = input.City
	}
	if input.State != nil {
		contact.State = input.State
	}
	if input.Zip != nil {
		contact.Zip = input.Zip
	}
	if input.Notes != nil {
		contact.Notes = input.Notes
	}
	if input.Tags != nil {
		contact.Tags = dbtypes.StringList(input.Tags)
	}
	if input.Source != nil {
		contact.Source = input.Source
	}
	if input.PreferredContact != nil {
		contact.PreferredContact = input.PreferredContact
	}

	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact")
	}
	return contact, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete contact")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return nil
}

func (s *service) Timeline(ctx context.Context, id uuid.UUID, limit int) (*TimelineResult, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.activity.ListActivity(ctx, activity.ListActivityParams{ContactID: &id, Limit: limit})
	if err != nil {
		return nil, err
	}
	comms, err := s.comms.List(ctx, communications.ListParams{ContactID: &id, Limit: limit})
	if err != nil {
		return nil, err
	}

	return &TimelineResult{
		Contact:        contact,
		Activity:       entries.Items,
		Communications: comms.Items,
	}, nil
}
