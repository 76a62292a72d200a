package shipments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines shipment tracking operations. The delivered transition is
// the big one: it cascades into the deal, the purchase order, follow-up
// tasks, and a notification, all inside one transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Shipment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input StatusInput) (*StatusResult, error)
	NotifyCustomer(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	AddEvent(ctx context.Context, id uuid.UUID, input EventInput) (*models.Shipment, error)
	ActiveSummary(ctx context.Context) (*ActiveSummary, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// noteStore writes communication rows inside another service's transaction.
// Satisfied by the communications repository.
type noteStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error
}

// dealStore moves deals through the pipeline inside shipment transactions.
// Satisfied by the deals repository.
type dealStore interface {
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error
}

// taskStore files follow-up tasks inside shipment transactions. Satisfied by
// the tasks repository.
type taskStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, task *models.Task) error
}

// ContactSource resolves contact names for follow-up task titles.
type ContactSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	deals    dealStore
	tasks    taskStore
	contacts ContactSource
	activity activity.Service
	comms    noteStore
}

// CreateInput carries new-shipment fields. Carrier and tracking number are
// required; the tracking URL is derived when not supplied.
type CreateInput struct {
	PurchaseOrderID   *uuid.UUID
	DealID            *uuid.UUID
	ContactID         *uuid.UUID
	Carrier           string
	TrackingNumber    string
	TrackingURL       *string
	EstimatedDelivery *time.Time
	Notes             *string
}

// ListParams filters the shipment list.
type ListParams struct {
	Status     string
	DealID     *uuid.UUID
	ContactID  *uuid.UUID
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps returned shipments and the cursor for the next page.
type ListResult struct {
	Items  []models.Shipment `json:"items"`
	Cursor string            `json:"cursor"`
}

// StatusInput carries a carrier status update.
type StatusInput struct {
	Status         string
	Location       *string
	Description    *string
	ActualDelivery *time.Time
}

// StatusResult reports the update. TasksCreated is two on the delivered
// transition and zero otherwise.
type StatusResult struct {
	Shipment     *models.Shipment `json:"shipment"`
	TasksCreated int              `json:"tasks_created"`
}

// EventInput is a manually recorded tracking event.
type EventInput struct {
	Status      string
	Description string
	Location    string
}

// ActiveSummary lists in-flight shipments for the Today screen.
type ActiveSummary struct {
	Shipments []models.Shipment `json:"shipments"`
	Count     int               `json:"count"`
}

// NewService wires shipment dependencies.
func NewService(client txRunner, repo Repository, dealsRepo dealStore, tasksRepo taskStore, contacts ContactSource, activitySvc activity.Service, commsRepo noteStore) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipments repository required")
	}
	if dealsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deals repository required")
	}
	if tasksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tasks repository required")
	}
	if contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact source required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	if commsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications repository required")
	}
	return &service{
		tx:       client,
		repo:     repo,
		deals:    dealsRepo,
		tasks:    tasksRepo,
		contacts: contacts,
		activity: activitySvc,
		comms:    commsRepo,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Shipment, error) {
	carrier := strings.TrimSpace(input.Carrier)
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	if carrier == "" || trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier and tracking number are required")
	}

	trackingURL := TrackingURL(carrier, trackingNumber)
	if input.TrackingURL != nil && *input.TrackingURL != "" {
		trackingURL = *input.TrackingURL
	}

	shipment := models.Shipment{
		PurchaseOrderID:   input.PurchaseOrderID,
		DealID:            input.DealID,
		ContactID:         input.ContactID,
		Carrier:           carrier,
		TrackingNumber:    trackingNumber,
		TrackingURL:       &trackingURL,
		Status:            enums.ShipmentStatusInTransit,
		EstimatedDelivery: input.EstimatedDelivery,
		Notes:             input.Notes,
		TrackingHistory: dbtypes.TrackingEvents{{
			Status:      string(enums.ShipmentStatusInTransit),
			Description: fmt.Sprintf("Shipment created: %s tracking #%s", carrier, trackingNumber),
			Timestamp:   time.Now().UTC(),
		}},
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		if input.DealID != nil {
			if err := s.moveDealToStage(ctx, tx, *input.DealID, enums.DealStageShipping); err != nil {
				return err
			}
		}

		entry := activity.Entry{
			DealID:      input.DealID,
			ContactID:   input.ContactID,
			EntityType:  enums.EntityTypeShipment,
			EntityID:    &shipment.ID,
			Action:      "created",
			Description: fmt.Sprintf("Shipment created: %s %s", carrier, trackingNumber),
			PerformedBy: "user",
		}
		if err := s.activity.Log(ctx, tx, entry); err != nil {
			return err
		}

		notice := activity.Notice{
			Type:       enums.NotificationTypeShipmentUpdate,
			Title:      fmt.Sprintf("Tracking added: %s", carrier),
			Message:    fmt.Sprintf("%s is in transit, send the tracking link to the customer", trackingNumber),
			EntityType: enums.EntityTypeShipment,
			EntityID:   &shipment.ID,
			Priority:   enums.NotificationPriorityHigh,
			ActionURL:  actionURL("/shipments/", shipment.ID),
		}
		return s.activity.Notify(ctx, tx, notice)
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	return s.get(ctx, s.repo, id)
}

func (s *service) get(ctx context.Context, repo Repository, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get shipment")
	}
	return shipment, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		DealID:     params.DealID,
		ContactID:  params.ContactID,
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParseShipmentStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// UpdateStatus records a carrier status change. History is prepended so the
// newest event is always first. Delivered runs the full cascade and reports
// the two follow-up tasks it creates.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, input StatusInput) (*StatusResult, error) {
	status, err := enums.ParseShipmentStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment status")
	}

	result := &StatusResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shipment, txErr := s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		now := time.Now().UTC()
		oldStatus := shipment.Status

		description := status.Label()
		if input.Description != nil && *input.Description != "" {
			description = *input.Description
		}
		location := ""
		if input.Location != nil {
			location = *input.Location
		}
		event := dbtypes.TrackingEvent{
			Status:      string(status),
			Description: description,
			Location:    location,
			Timestamp:   now,
		}
		shipment.TrackingHistory = append(dbtypes.TrackingEvents{event}, shipment.TrackingHistory...)

		shipment.Status = status
		lastStatus := string(status)
		shipment.LastStatus = &lastStatus
		shipment.LastCheckedAt = &now
		if input.Location != nil && *input.Location != "" {
			shipment.CurrentLocation = input.Location
		}

		delivered := status == enums.ShipmentStatusDelivered
		if delivered {
			delivery := now
			if input.ActualDelivery != nil {
				delivery = *input.ActualDelivery
			}
			shipment.ActualDelivery = &delivery
		}

		if err := repo.Update(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
		}

		if delivered {
			created, err := s.runDeliveredCascade(ctx, tx, shipment, now)
			if err != nil {
				return err
			}
			result.TasksCreated = created
		}

		oldVal := string(oldStatus)
		newVal := string(status)
		entry := activity.Entry{
			DealID:      shipment.DealID,
			ContactID:   shipment.ContactID,
			EntityType:  enums.EntityTypeShipment,
			EntityID:    &shipment.ID,
			Action:      "status_updated",
			Description: fmt.Sprintf("Shipment %s: %s %s", status, shipment.Carrier, shipment.TrackingNumber),
			OldValue:    &oldVal,
			NewValue:    &newVal,
		}
		if err := s.activity.Log(ctx, tx, entry); err != nil {
			return err
		}

		result.Shipment = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runDeliveredCascade moves the deal to delivered, files both follow-up
// tasks, marks the purchase order received, and raises the notification.
// Tasks are inserted unconditionally; a re-delivered shipment files them
// again.
func (s *service) runDeliveredCascade(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, now time.Time) (int, error) {
	if shipment.DealID == nil {
		return 0, nil
	}

	if err := s.moveDealToStage(ctx, tx, *shipment.DealID, enums.DealStageDelivered); err != nil {
		return 0, err
	}

	contactName := "customer"
	if shipment.ContactID != nil {
		if contact, err := s.contacts.Get(ctx, *shipment.ContactID); err == nil {
			if name := contact.FullName(); name != "" {
				contactName = name
			}
		}
	}

	confirmDue := now.AddDate(0, 0, 1)
	confirmDesc := fmt.Sprintf("Order delivered via %s. Confirm the customer received everything in good condition and is satisfied.", shipment.Carrier)
	confirm := models.Task{
		DealID:      shipment.DealID,
		ContactID:   shipment.ContactID,
		Title:       fmt.Sprintf("Confirm delivery with %s", contactName),
		Description: &confirmDesc,
		Type:        "follow_up",
		Priority:    enums.TaskPriorityHigh,
		Status:      enums.TaskStatusPending,
		DueDate:     &confirmDue,
	}
	if err := s.tasks.CreateTx(ctx, tx, &confirm); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery task")
	}

	reviewDue := now.AddDate(0, 0, 3)
	reviewDesc := fmt.Sprintf("Ask %s to leave a Google review and mention Amberway Equine to any friends with equine needs.", contactName)
	review := models.Task{
		DealID:      shipment.DealID,
		ContactID:   shipment.ContactID,
		Title:       fmt.Sprintf("Request review and referral from %s", contactName),
		Description: &reviewDesc,
		Type:        "follow_up",
		Priority:    enums.TaskPriorityMedium,
		Status:      enums.TaskStatusPending,
		DueDate:     &reviewDue,
	}
	if err := s.tasks.CreateTx(ctx, tx, &review); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review task")
	}

	if shipment.PurchaseOrderID != nil {
		if err := s.repo.WithTx(tx).MarkPurchaseOrderReceived(ctx, *shipment.PurchaseOrderID, now); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase order received")
		}
	}

	notice := activity.Notice{
		Type:       enums.NotificationTypeShipmentUpdate,
		Title:      fmt.Sprintf("Delivered, follow up with %s", contactName),
		Message:    fmt.Sprintf("%s %s delivered, 2 follow-up tasks created", shipment.Carrier, shipment.TrackingNumber),
		EntityType: enums.EntityTypeShipment,
		EntityID:   &shipment.ID,
		Priority:   enums.NotificationPriorityHigh,
		ActionURL:  actionURL("/deals/", *shipment.DealID),
	}
	if err := s.activity.Notify(ctx, tx, notice); err != nil {
		return 0, err
	}
	return 2, nil
}

// NotifyCustomer flips the notified flag and logs a synthetic outbound email
// so the timeline shows tracking was shared. Calling it twice is harmless.
func (s *service) NotifyCustomer(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var txErr error
		shipment, txErr = s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		alreadyNotified := shipment.CustomerNotified
		shipment.CustomerNotified = true
		if err := repo.Update(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark customer notified")
		}

		entry := activity.Entry{
			DealID:      shipment.DealID,
			ContactID:   shipment.ContactID,
			EntityType:  enums.EntityTypeShipment,
			EntityID:    &shipment.ID,
			Action:      "customer_notified",
			Description: fmt.Sprintf("Customer notified of tracking: %s %s", shipment.Carrier, shipment.TrackingNumber),
			PerformedBy: "user",
		}
		if err := s.activity.Log(ctx, tx, entry); err != nil {
			return err
		}

		if alreadyNotified || shipment.DealID == nil || shipment.ContactID == nil {
			return nil
		}

		now := time.Now().UTC()
		subject := fmt.Sprintf("Your order is on its way: %s tracking #%s", shipment.Carrier, shipment.TrackingNumber)
		trackingURL := ""
		if shipment.TrackingURL != nil {
			trackingURL = *shipment.TrackingURL
		}
		body := fmt.Sprintf("Tracking shared with customer. Carrier: %s, Tracking #: %s, URL: %s", shipment.Carrier, shipment.TrackingNumber, trackingURL)
		comm := models.Communication{
			DealID:    shipment.DealID,
			ContactID: shipment.ContactID,
			Type:      enums.CommunicationTypeEmail,
			Direction: enums.CommunicationDirectionOutbound,
			Subject:   &subject,
			Body:      &body,
			Status:    enums.CommunicationStatusSent,
			SentAt:    &now,
		}
		if err := s.comms.CreateTx(ctx, tx, &comm); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log tracking email")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// AddEvent records a manual tracking event without changing the shipment's
// canonical status.
func (s *service) AddEvent(ctx context.Context, id uuid.UUID, input EventInput) (*models.Shipment, error) {
	shipment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := string(shipment.Status)
	if input.Status != "" {
		status = input.Status
	}
	event := dbtypes.TrackingEvent{
		Status:      status,
		Description: input.Description,
		Location:    input.Location,
		Timestamp:   now,
	}
	shipment.TrackingHistory = append(dbtypes.TrackingEvents{event}, shipment.TrackingHistory...)
	shipment.LastStatus = &status
	shipment.LastCheckedAt = &now
	if input.Location != "" {
		shipment.CurrentLocation = &input.Location
	}

	if err := s.repo.Update(ctx, shipment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add tracking event")
	}
	return shipment, nil
}

func (s *service) ActiveSummary(ctx context.Context) (*ActiveSummary, error) {
	shipments, err := s.repo.ListActive(ctx, 20)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active shipments")
	}
	return &ActiveSummary{Shipments: shipments, Count: len(shipments)}, nil
}

func (s *service) moveDealToStage(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, stage enums.DealStage) error {
	deal, err := s.deals.GetTx(ctx, tx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get deal")
	}
	deal.Stage = stage
	if err := s.deals.UpdateTx(ctx, tx, deal); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal stage")
	}
	return nil
}

func actionURL(prefix string, id uuid.UUID) *string {
	url := prefix + id.String()
	return &url
}
