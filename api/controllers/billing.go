package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amberwayequine/crm-backend/api/responses"
	"github.com/amberwayequine/crm-backend/api/validators"
	"github.com/amberwayequine/crm-backend/internal/billing"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type estimateCreateRequest struct {
	DealID         *uuid.UUID        `json:"deal_id,omitempty"`
	ContactID      *uuid.UUID        `json:"contact_id,omitempty"`
	LineItems      []lineItemRequest `json:"line_items,omitempty" validate:"dive"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxRate        decimal.Decimal   `json:"tax_rate"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Total          decimal.Decimal   `json:"total"`
	Notes          *string           `json:"notes,omitempty"`
	Terms          *string           `json:"terms,omitempty"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
}

type invoiceCreateRequest struct {
	EstimateID     *uuid.UUID        `json:"estimate_id,omitempty"`
	DealID         *uuid.UUID        `json:"deal_id,omitempty"`
	ContactID      *uuid.UUID        `json:"contact_id,omitempty"`
	LineItems      []lineItemRequest `json:"line_items,omitempty" validate:"dive"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxRate        decimal.Decimal   `json:"tax_rate"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Total          decimal.Decimal   `json:"total"`
	Notes          *string           `json:"notes,omitempty"`
	Terms          *string           `json:"terms,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
}

type invoicePaidRequest struct {
	PaymentMethod    *string `json:"payment_method,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`
}

func EstimateList(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := billingListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListEstimates(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func EstimateCreate(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req estimateCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		estimate, err := svc.CreateEstimate(r.Context(), billing.CreateEstimateInput{
			DealID:         req.DealID,
			ContactID:      req.ContactID,
			LineItems:      toLineItems(req.LineItems),
			Subtotal:       req.Subtotal,
			TaxRate:        req.TaxRate,
			TaxAmount:      req.TaxAmount,
			DiscountAmount: req.DiscountAmount,
			Total:          req.Total,
			Notes:          req.Notes,
			Terms:          req.Terms,
			ValidUntil:     req.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, estimate)
	}
}

func InvoiceList(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := billingListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListInvoices(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InvoiceCreate(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invoiceCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.CreateInvoice(r.Context(), billing.CreateInvoiceInput{
			EstimateID:     req.EstimateID,
			DealID:         req.DealID,
			ContactID:      req.ContactID,
			LineItems:      toLineItems(req.LineItems),
			Subtotal:       req.Subtotal,
			TaxRate:        req.TaxRate,
			TaxAmount:      req.TaxAmount,
			DiscountAmount: req.DiscountAmount,
			Total:          req.Total,
			Notes:          req.Notes,
			Terms:          req.Terms,
			DueDate:        req.DueDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// InvoiceMarkPaid settles the invoice and cascades the owning deal to
// invoice_paid. Method and reference are optional; send {} to omit both.
func InvoiceMarkPaid(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceId"), "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req invoicePaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkInvoicePaid(r.Context(), id, billing.PaymentInput{
			Method:    req.PaymentMethod,
			Reference: req.PaymentReference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func billingListParams(r *http.Request) (billing.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return billing.ListParams{}, err
	}
	dealID, err := validators.ParseQueryUUID(r, "deal_id")
	if err != nil {
		return billing.ListParams{}, err
	}
	contactID, err := validators.ParseQueryUUID(r, "contact_id")
	if err != nil {
		return billing.ListParams{}, err
	}
	return billing.ListParams{
		DealID:    dealID,
		ContactID: contactID,
		Limit:     limit,
		Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
