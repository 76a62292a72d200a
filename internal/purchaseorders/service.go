package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/internal/shipments"
	"github.com/amberwayequine/crm-backend/pkg/config"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines purchase order operations. Status changes stamp their
// milestone column and cascade into the owning deal's stage inside one
// transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.PurchaseOrder, error)
	RequestQuote(ctx context.Context, id uuid.UUID) (*QuoteResult, error)
	AddTracking(ctx context.Context, id uuid.UUID, input AddTrackingInput) (*AddTrackingResult, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// noteStore writes communication rows inside another service's transaction.
// Satisfied by the communications repository.
type noteStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error
}

// dealStore moves deals through the pipeline inside purchase order
// transactions. Satisfied by the deals repository.
type dealStore interface {
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error
}

// shipmentStore creates and reads shipment rows for an order. Satisfied by
// the shipments repository.
type shipmentStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error
	ListByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]models.Shipment, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	deals     dealStore
	shipments shipmentStore
	comms     noteStore
	activity  activity.Service
	company   config.CompanyConfig
}

// CreateInput carries new purchase order fields.
type CreateInput struct {
	DealID           *uuid.UUID
	SupplierID       *uuid.UUID
	LineItems        []dbtypes.LineItem
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Shipping         decimal.Decimal
	Total            decimal.Decimal
	Notes            *string
	ExpectedDelivery *time.Time
}

// UpdateInput mirrors CreateInput; nil leaves a field unchanged. Status
// changes go through UpdateStatus so the cascade cannot be skipped.
type UpdateInput struct {
	SupplierID          *uuid.UUID
	LineItems           []dbtypes.LineItem
	Subtotal            *decimal.Decimal
	Tax                 *decimal.Decimal
	Shipping            *decimal.Decimal
	Total               *decimal.Decimal
	Notes               *string
	SupplierNotes       *string
	SupplierOrderNumber *string
	ExpectedDelivery    *time.Time
}

// ListParams filters the purchase order list.
type ListParams struct {
	DealID     *uuid.UUID
	SupplierID *uuid.UUID
	Status     string
	Limit      int
	Cursor     string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.PurchaseOrder `json:"items"`
	Cursor string                 `json:"cursor"`
}

// Detail is a purchase order with its shipments attached.
type Detail struct {
	PurchaseOrder *models.PurchaseOrder `json:"purchase_order"`
	Shipments     []models.Shipment     `json:"shipments"`
}

// QuoteResult reports the quote request email that was logged.
type QuoteResult struct {
	PurchaseOrder *models.PurchaseOrder `json:"purchase_order"`
	Subject       string                `json:"subject"`
	SupplierEmail *string               `json:"supplier_email"`
}

// AddTrackingInput carries the tracking details for a supplier shipment.
type AddTrackingInput struct {
	Carrier           string
	TrackingNumber    string
	TrackingURL       *string
	ContactID         *uuid.UUID
	EstimatedDelivery *time.Time
}

// AddTrackingResult reports the shipment spun up for the tracking number.
type AddTrackingResult struct {
	PurchaseOrder *models.PurchaseOrder `json:"purchase_order"`
	Shipment      *models.Shipment      `json:"shipment"`
	TrackingURL   string                `json:"tracking_url"`
}

// dealStageForStatus maps the purchase order milestones that move the owning
// deal. Other statuses leave the deal alone.
var dealStageForStatus = map[enums.PurchaseOrderStatus]enums.DealStage{
	enums.PurchaseOrderStatusSubmitted: enums.DealStageOrderPlaced,
	enums.PurchaseOrderStatusConfirmed: enums.DealStageOrderConfirmed,
	enums.PurchaseOrderStatusShipped:   enums.DealStageShipping,
	enums.PurchaseOrderStatusReceived:  enums.DealStageDelivered,
}

// NewService wires purchase order dependencies.
func NewService(client txRunner, repo Repository, dealsRepo dealStore, shipmentsRepo shipmentStore, commsRepo noteStore, activitySvc activity.Service, company config.CompanyConfig) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "purchase orders repository required")
	}
	if dealsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deals repository required")
	}
	if shipmentsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipments repository required")
	}
	if commsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications repository required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	return &service{
		tx:        client,
		repo:      repo,
		deals:     dealsRepo,
		shipments: shipmentsRepo,
		comms:     commsRepo,
		activity:  activitySvc,
		company:   company,
	}, nil
}

// generatePONumber builds PO-YYMMDD-XXXX. The random suffix is not checked
// for collisions; the unique index on po_number catches the rare clash.
func generatePONumber(now time.Time) string {
	return fmt.Sprintf("PO-%s-%04d", now.Format("060102"), rand.IntN(10000))
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	po := models.PurchaseOrder{
		PONumber:         generatePONumber(time.Now().UTC()),
		DealID:           input.DealID,
		SupplierID:       input.SupplierID,
		Status:           enums.PurchaseOrderStatusDraft,
		LineItems:        dbtypes.LineItems(input.LineItems),
		Subtotal:         input.Subtotal,
		Tax:              input.Tax,
		Shipping:         input.Shipping,
		Total:            input.Total,
		Notes:            input.Notes,
		ExpectedDelivery: input.ExpectedDelivery,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &po); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		entry := activity.Entry{
			DealID:      input.DealID,
			EntityType:  enums.EntityTypePurchaseOrder,
			EntityID:    &po.ID,
			Action:      "created",
			Description: fmt.Sprintf("Purchase Order %s created", po.PONumber),
			PerformedBy: "user",
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	po, err := s.get(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	shipmentRows, err := s.shipments.ListByPurchaseOrder(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase order shipments")
	}
	return &Detail{PurchaseOrder: po, Shipments: shipmentRows}, nil
}

func (s *service) get(ctx context.Context, repo Repository, id uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get purchase order")
	}
	return po, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		DealID:     params.DealID,
		SupplierID: params.SupplierID,
		Limit:      params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParsePurchaseOrderStatus(params.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.PurchaseOrder, error) {
	po, err := s.get(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if input.SupplierID != nil {
		po.SupplierID = input.SupplierID
	}
	if input.LineItems != nil {
		po.LineItems = dbtypes.LineItems(input.LineItems)
	}
	if input.Subtotal != nil {
		po.Subtotal = *input.Subtotal
	}
	if input.Tax != nil {
		po.Tax = *input.Tax
	}
	if input.Shipping != nil {
		po.Shipping = *input.Shipping
	}
	if input.Total != nil {
		po.Total = *input.Total
	}
	if input.Notes != nil {
		po.Notes = input.Notes
	}
	if input.SupplierNotes != nil {
		po.SupplierNotes = input.SupplierNotes
	}
	if input.SupplierOrderNumber != nil {
		po.SupplierOrderNumber = input.SupplierOrderNumber
	}
	if input.ExpectedDelivery != nil {
		po.ExpectedDelivery = input.ExpectedDelivery
	}

	if err := s.repo.Update(ctx, po); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
	}
	return po, nil
}

// UpdateStatus moves the order to a new status, stamps its milestone column,
// and pushes the owning deal along the pipeline for the statuses that map to
// a stage.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.PurchaseOrder, error) {
	newStatus, err := enums.ParsePurchaseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase order status")
	}

	var po *models.PurchaseOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var txErr error
		po, txErr = s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		oldStatus := po.Status
		if oldStatus == newStatus {
			return nil
		}

		now := time.Now().UTC()
		po.Status = newStatus
		stampStatus(po, newStatus, now)
		if err := repo.Update(ctx, po); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order status")
		}

		if po.DealID != nil {
			if stage, ok := dealStageForStatus[newStatus]; ok {
				if err := s.moveDealToStage(ctx, tx, *po.DealID, stage); err != nil {
					return err
				}
			}
		}

		oldVal := string(oldStatus)
		newVal := string(newStatus)
		entry := activity.Entry{
			DealID:      po.DealID,
			EntityType:  enums.EntityTypePurchaseOrder,
			EntityID:    &po.ID,
			Action:      "status_changed",
			Description: fmt.Sprintf("PO %s status: %s to %s", po.PONumber, oldStatus, newStatus),
			OldValue:    &oldVal,
			NewValue:    &newVal,
			PerformedBy: "user",
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// RequestQuote logs an outbound quote email against the deal and moves the
// order to quote_requested. The email itself is prepared for the office to
// send, not dispatched from here.
func (s *service) RequestQuote(ctx context.Context, id uuid.UUID) (*QuoteResult, error) {
	result := &QuoteResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, txErr := s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}
		if po.SupplierID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase order has no supplier")
		}
		supplier, err := repo.GetSupplier(ctx, *po.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get supplier")
		}

		projectTitle := "Equine Project"
		if po.DealID != nil {
			if deal, err := s.deals.GetTx(ctx, tx, *po.DealID); err == nil {
				projectTitle = deal.Title
			}
		}

		subject := fmt.Sprintf("Quote Request - %s - %s", projectTitle, po.PONumber)
		body := buildQuoteBody(po, supplier.Name, projectTitle, s.company)

		now := time.Now().UTC()
		from := s.company.Email
		comm := models.Communication{
			DealID:      po.DealID,
			Type:        enums.CommunicationTypeEmail,
			Direction:   enums.CommunicationDirectionOutbound,
			Subject:     &subject,
			Body:        &body,
			Status:      enums.CommunicationStatusSent,
			FromAddress: &from,
			ToAddress:   supplier.Email,
			SentAt:      &now,
		}
		if err := s.comms.CreateTx(ctx, tx, &comm); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log quote email")
		}

		po.Status = enums.PurchaseOrderStatusQuoteRequested
		po.QuoteRequestedAt = &now
		if err := repo.Update(ctx, po); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}

		notice := activity.Notice{
			Type:       enums.NotificationTypePOUpdate,
			Title:      fmt.Sprintf("Quote requested from %s", supplier.Name),
			Message:    fmt.Sprintf("PO %s quote request sent", po.PONumber),
			EntityType: enums.EntityTypePurchaseOrder,
			EntityID:   &po.ID,
			ActionURL:  actionURL("/purchase-orders/", po.ID),
		}
		if err := s.activity.Notify(ctx, tx, notice); err != nil {
			return err
		}

		result.PurchaseOrder = po
		result.Subject = subject
		result.SupplierEmail = supplier.Email
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddTracking appends the tracking number, forces the order to shipped, and
// spins up the shipment record in one transaction. The contact on the
// shipment is the explicit one if given, else the deal's.
func (s *service) AddTracking(ctx context.Context, id uuid.UUID, input AddTrackingInput) (*AddTrackingResult, error) {
	carrier := strings.TrimSpace(input.Carrier)
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	if carrier == "" || trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier and tracking number are required")
	}

	trackingURL := shipments.TrackingURL(carrier, trackingNumber)
	if input.TrackingURL != nil && *input.TrackingURL != "" {
		trackingURL = *input.TrackingURL
	}

	result := &AddTrackingResult{TrackingURL: trackingURL}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, txErr := s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		contactID := input.ContactID
		if contactID == nil && po.DealID != nil {
			if deal, err := s.deals.GetTx(ctx, tx, *po.DealID); err == nil {
				contactID = deal.ContactID
			}
		}

		now := time.Now().UTC()
		po.TrackingNumbers = append(po.TrackingNumbers, trackingNumber)
		po.Status = enums.PurchaseOrderStatusShipped
		po.ShippedAt = &now
		po.ShippingCarrier = &carrier
		if input.EstimatedDelivery != nil {
			po.ExpectedDelivery = input.EstimatedDelivery
		}
		if err := repo.Update(ctx, po); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}

		shipment := models.Shipment{
			PurchaseOrderID:   &po.ID,
			DealID:            po.DealID,
			ContactID:         contactID,
			Carrier:           carrier,
			TrackingNumber:    trackingNumber,
			TrackingURL:       &trackingURL,
			Status:            enums.ShipmentStatusInTransit,
			EstimatedDelivery: input.EstimatedDelivery,
			TrackingHistory: dbtypes.TrackingEvents{{
				Status:      string(enums.ShipmentStatusInTransit),
				Description: fmt.Sprintf("Shipment created: %s tracking #%s", carrier, trackingNumber),
				Timestamp:   now,
			}},
		}
		if err := s.shipments.CreateTx(ctx, tx, &shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		if po.DealID != nil {
			if err := s.moveDealToStage(ctx, tx, *po.DealID, enums.DealStageShipping); err != nil {
				return err
			}
		}

		entry := activity.Entry{
			DealID:      po.DealID,
			ContactID:   contactID,
			EntityType:  enums.EntityTypeShipment,
			EntityID:    &shipment.ID,
			Action:      "created",
			Description: fmt.Sprintf("Tracking added: %s #%s", carrier, trackingNumber),
			PerformedBy: "user",
		}
		if err := s.activity.Log(ctx, tx, entry); err != nil {
			return err
		}

		notice := activity.Notice{
			Type:       enums.NotificationTypeShipmentUpdate,
			Title:      fmt.Sprintf("Tracking added: %s", carrier),
			Message:    fmt.Sprintf("#%s, send tracking link to customer", trackingNumber),
			EntityType: enums.EntityTypeShipment,
			EntityID:   &shipment.ID,
			Priority:   enums.NotificationPriorityHigh,
			ActionURL:  actionURL("/shipments/", shipment.ID),
		}
		if err := s.activity.Notify(ctx, tx, notice); err != nil {
			return err
		}

		result.PurchaseOrder = po
		result.Shipment = &shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return suppliers, nil
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

func stampStatus(po *models.PurchaseOrder, status enums.PurchaseOrderStatus, now time.Time) {
	switch status {
	case enums.PurchaseOrderStatusQuoteRequested:
		po.QuoteRequestedAt = &now
	case enums.PurchaseOrderStatusQuoteReceived:
		po.QuoteReceivedAt = &now
	case enums.PurchaseOrderStatusApproved:
		po.ApprovedAt = &now
	case enums.PurchaseOrderStatusSubmitted:
		po.SubmittedAt = &now
	case enums.PurchaseOrderStatusConfirmed:
		po.ConfirmedAt = &now
	case enums.PurchaseOrderStatusShipped:
		po.ShippedAt = &now
	case enums.PurchaseOrderStatusReceived:
		po.ReceivedAt = &now
	case enums.PurchaseOrderStatusCancelled:
		po.CancelledAt = &now
	}
}

func buildQuoteBody(po *models.PurchaseOrder, supplierName, projectTitle string, company config.CompanyConfig) string {
	var items strings.Builder
	for _, item := range po.LineItems {
		sku := item.SKU
		if sku == "" {
			sku = "N/A"
		}
		fmt.Fprintf(&items, "- %s (Qty: %d, SKU: %s)\n", item.Description, item.Quantity, sku)
	}
	lines := items.String()
	if lines == "" {
		lines = "See attached specifications\n"
	}

	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"We would like to request a quote for the following items for one of our customer projects.\n\n"+
			"Purchase Order: %s\n"+
			"Project: %s\n\n"+
			"Items Requested:\n%s\n"+
			"Please provide pricing, availability, and estimated lead times at your earliest convenience.\n\n"+
			"Thank you,\n%s\n%s\n",
		supplierName, po.PONumber, projectTitle, lines, company.Name, company.Email,
	)
}

func actionURL(prefix string, id uuid.UUID) *string {
	url := prefix + id.String()
	return &url
}
