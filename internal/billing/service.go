package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// defaultPaymentWindow is how long customers get on new estimates and
// invoices when no explicit date is provided.
const defaultPaymentWindow = 30 * 24 * time.Hour

// Service defines estimate and invoice operations. Marking an invoice paid
// cascades into the owning deal's stage inside one transaction.
type Service interface {
	CreateEstimate(ctx context.Context, input CreateEstimateInput) (*models.Estimate, error)
	ListEstimates(ctx context.Context, params ListParams) (*EstimateList, error)
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error)
	ListInvoices(ctx context.Context, params ListParams) (*InvoiceList, error)
	MarkInvoicePaid(ctx context.Context, id uuid.UUID, input PaymentInput) (*MarkPaidResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// dealStore moves deals through the pipeline inside billing transactions.
// Satisfied by the deals repository.
type dealStore interface {
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error
}

type service struct {
	tx       txRunner
	repo     Repository
	deals    dealStore
	activity activity.Service
}

// CreateEstimateInput carries new estimate fields. ValidUntil defaults to
// thirty days out when omitted.
type CreateEstimateInput struct {
	DealID         *uuid.UUID
	ContactID      *uuid.UUID
	LineItems      []dbtypes.LineItem
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Notes          *string
	Terms          *string
	ValidUntil     *time.Time
}

// CreateInvoiceInput carries new invoice fields. DueDate defaults to thirty
// days out when omitted; the amount due always starts at the total.
type CreateInvoiceInput struct {
	EstimateID     *uuid.UUID
	DealID         *uuid.UUID
	ContactID      *uuid.UUID
	LineItems      []dbtypes.LineItem
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Notes          *string
	Terms          *string
	DueDate        *time.Time
}

// PaymentInput records how an invoice was settled.
type PaymentInput struct {
	Method    *string
	Reference *string
}

// ListParams filters the estimate or invoice list.
type ListParams struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Limit     int
	Cursor    string
}

// EstimateList wraps returned estimates and the cursor for the next page.
type EstimateList struct {
	Items  []models.Estimate `json:"items"`
	Cursor string            `json:"cursor"`
}

// InvoiceList wraps returned invoices and the cursor for the next page.
type InvoiceList struct {
	Items  []models.Invoice `json:"items"`
	Cursor string           `json:"cursor"`
}

// MarkPaidResult reports the settled invoice and whether a deal moved with it.
type MarkPaidResult struct {
	Invoice     *models.Invoice `json:"invoice"`
	DealUpdated bool            `json:"deal_updated"`
}

// NewService wires billing dependencies.
func NewService(client txRunner, repo Repository, dealsRepo dealStore, activitySvc activity.Service) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "billing repository required")
	}
	if dealsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deals repository required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	return &service{
		tx:       client,
		repo:     repo,
		deals:    dealsRepo,
		activity: activitySvc,
	}, nil
}

// generateEstimateNumber builds EST-YYMM-XXXX. The random suffix is not
// checked for collisions; the unique index on estimate_number catches the
// rare clash.
func generateEstimateNumber(now time.Time) string {
	return fmt.Sprintf("EST-%s-%04d", now.Format("0601"), rand.IntN(10000))
}

// generateInvoiceNumber builds INV-YYMM-XXXX.
func generateInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", now.Format("0601"), rand.IntN(10000))
}

func (s *service) CreateEstimate(ctx context.Context, input CreateEstimateInput) (*models.Estimate, error) {
	now := time.Now().UTC()
	validUntil := input.ValidUntil
	if validUntil == nil {
		deadline := now.Add(defaultPaymentWindow)
		validUntil = &deadline
	}

	estimate := models.Estimate{
		EstimateNumber: generateEstimateNumber(now),
		DealID:         input.DealID,
		ContactID:      input.ContactID,
		Status:         enums.EstimateStatusDraft,
		LineItems:      dbtypes.LineItems(input.LineItems),
		Subtotal:       input.Subtotal,
		TaxRate:        input.TaxRate,
		TaxAmount:      input.TaxAmount,
		DiscountAmount: input.DiscountAmount,
		Total:          input.Total,
		Notes:          input.Notes,
		Terms:          input.Terms,
		ValidUntil:     validUntil,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateEstimate(ctx, &estimate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create estimate")
		}
		entry := activity.Entry{
			DealID:      input.DealID,
			ContactID:   input.ContactID,
			EntityType:  enums.EntityTypeEstimate,
			EntityID:    &estimate.ID,
			Action:      "created",
			Description: fmt.Sprintf("Estimate %s created", estimate.EstimateNumber),
			PerformedBy: "user",
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (s *service) ListEstimates(ctx context.Context, params ListParams) (*EstimateList, error) {
	query, err := toListParams(params)
	if err != nil {
		return nil, err
	}

	rows, next, err := s.repo.ListEstimates(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list estimates")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &EstimateList{Items: rows, Cursor: cursor}, nil
}

func (s *service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	now := time.Now().UTC()
	dueDate := input.DueDate
	if dueDate == nil {
		deadline := now.Add(defaultPaymentWindow)
		dueDate = &deadline
	}

	invoice := models.Invoice{
		InvoiceNumber:  generateInvoiceNumber(now),
		EstimateID:     input.EstimateID,
		DealID:         input.DealID,
		ContactID:      input.ContactID,
		Status:         enums.InvoiceStatusDraft,
		LineItems:      dbtypes.LineItems(input.LineItems),
		Subtotal:       input.Subtotal,
		TaxRate:        input.TaxRate,
		TaxAmount:      input.TaxAmount,
		DiscountAmount: input.DiscountAmount,
		Total:          input.Total,
		AmountDue:      input.Total,
		Notes:          input.Notes,
		Terms:          input.Terms,
		DueDate:        dueDate,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateInvoice(ctx, &invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
		entry := activity.Entry{
			DealID:      input.DealID,
			ContactID:   input.ContactID,
			EntityType:  enums.EntityTypeInvoice,
			EntityID:    &invoice.ID,
			Action:      "created",
			Description: fmt.Sprintf("Invoice %s created", invoice.InvoiceNumber),
			PerformedBy: "user",
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *service) ListInvoices(ctx context.Context, params ListParams) (*InvoiceList, error) {
	query, err := toListParams(params)
	if err != nil {
		return nil, err
	}

	rows, next, err := s.repo.ListInvoices(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &InvoiceList{Items: rows, Cursor: cursor}, nil
}

// MarkInvoicePaid settles the invoice in full and, when it belongs to a
// deal, moves the deal to invoice_paid with the activity entry and the
// high-priority notification in the same transaction. Marking an already
// paid invoice changes nothing.
func (s *service) MarkInvoicePaid(ctx context.Context, id uuid.UUID, input PaymentInput) (*MarkPaidResult, error) {
	result := &MarkPaidResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.GetInvoice(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get invoice")
		}

		if invoice.Status == enums.InvoiceStatusPaid {
			result.Invoice = invoice
			return nil
		}

		now := time.Now().UTC()
		invoice.Status = enums.InvoiceStatusPaid
		invoice.AmountPaid = invoice.Total
		invoice.AmountDue = decimal.Zero
		invoice.PaidAt = &now
		invoice.PaymentMethod = input.Method
		invoice.PaymentReference = input.Reference
		if err := repo.UpdateInvoice(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice")
		}

		if invoice.DealID != nil {
			deal, err := s.deals.GetTx(ctx, tx, *invoice.DealID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get deal")
			}
			deal.Stage = enums.DealStageInvoicePaid
			if err := s.deals.UpdateTx(ctx, tx, deal); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal stage")
			}

			entry := activity.Entry{
				DealID:      invoice.DealID,
				ContactID:   invoice.ContactID,
				EntityType:  enums.EntityTypeInvoice,
				EntityID:    &invoice.ID,
				Action:      "invoice_paid",
				Description: fmt.Sprintf("Invoice %s marked as paid - $%s", invoice.InvoiceNumber, invoice.Total.StringFixed(2)),
				PerformedBy: "user",
			}
			if err := s.activity.Log(ctx, tx, entry); err != nil {
				return err
			}

			notice := activity.Notice{
				Type:       enums.NotificationTypePaymentReceived,
				Title:      fmt.Sprintf("Payment received! Invoice %s", invoice.InvoiceNumber),
				Message:    fmt.Sprintf("Amount: $%s. Ready to place order with suppliers.", invoice.Total.StringFixed(2)),
				EntityType: enums.EntityTypeDeal,
				EntityID:   invoice.DealID,
				Priority:   enums.NotificationPriorityHigh,
				ActionURL:  actionURL("/deals/", *invoice.DealID),
			}
			if err := s.activity.Notify(ctx, tx, notice); err != nil {
				return err
			}
			result.DealUpdated = true
		}

		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func toListParams(params ListParams) (listParams, error) {
	query := listParams{
		DealID:    params.DealID,
		ContactID: params.ContactID,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return listParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func actionURL(prefix string, id uuid.UUID) *string {
	url := prefix + id.String()
	return &url
}
