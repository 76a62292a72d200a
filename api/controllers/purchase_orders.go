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
	"github.com/amberwayequine/crm-backend/internal/purchaseorders"
	dbtypes "github.com/amberwayequine/crm-backend/pkg/db/types"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// lineItemRequest is the wire shape for line items on purchase orders,
// estimates, and invoices.
type lineItemRequest struct {
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type purchaseOrderCreateRequest struct {
	DealID           *uuid.UUID        `json:"deal_id,omitempty"`
	SupplierID       *uuid.UUID        `json:"supplier_id,omitempty"`
	LineItems        []lineItemRequest `json:"line_items,omitempty" validate:"dive"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Tax              decimal.Decimal   `json:"tax"`
	Shipping         decimal.Decimal   `json:"shipping"`
	Total            decimal.Decimal   `json:"total"`
	Notes            *string           `json:"notes,omitempty"`
	ExpectedDelivery *time.Time        `json:"expected_delivery,omitempty"`
}

type purchaseOrderUpdateRequest struct {
	SupplierID          *uuid.UUID        `json:"supplier_id,omitempty"`
	Status              *string           `json:"status,omitempty"`
	LineItems           []lineItemRequest `json:"line_items,omitempty" validate:"dive"`
	Subtotal            *decimal.Decimal  `json:"subtotal,omitempty"`
	Tax                 *decimal.Decimal  `json:"tax,omitempty"`
	Shipping            *decimal.Decimal  `json:"shipping,omitempty"`
	Total               *decimal.Decimal  `json:"total,omitempty"`
	Notes               *string           `json:"notes,omitempty"`
	SupplierNotes       *string           `json:"supplier_notes,omitempty"`
	SupplierOrderNumber *string           `json:"supplier_order_number,omitempty"`
	ExpectedDelivery    *time.Time        `json:"expected_delivery,omitempty"`
}

type purchaseOrderTrackingRequest struct {
	Carrier           string     `json:"carrier" validate:"required"`
	TrackingNumber    string     `json:"tracking_number" validate:"required"`
	TrackingURL       *string    `json:"tracking_url,omitempty"`
	ContactID         *uuid.UUID `json:"contact_id,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

func toLineItems(items []lineItemRequest) []dbtypes.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]dbtypes.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, dbtypes.LineItem{
			SKU:         item.SKU,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

func PurchaseOrderCreate(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purchaseOrderCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), purchaseorders.CreateInput{
			DealID:           req.DealID,
			SupplierID:       req.SupplierID,
			LineItems:        toLineItems(req.LineItems),
			Subtotal:         req.Subtotal,
			Tax:              req.Tax,
			Shipping:         req.Shipping,
			Total:            req.Total,
			Notes:            req.Notes,
			ExpectedDelivery: req.ExpectedDelivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func PurchaseOrderGet(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "purchaseOrderId"), "purchaseOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func PurchaseOrderList(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealID, err := validators.ParseQueryUUID(r, "deal_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), purchaseorders.ListParams{
			DealID:     dealID,
			SupplierID: supplierID,
			Status:     strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PurchaseOrderUpdate merges field edits. A status in the body is routed
// through UpdateStatus so the deal cascade and timestamps still fire.
func PurchaseOrderUpdate(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "purchaseOrderId"), "purchaseOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req purchaseOrderUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Update(r.Context(), id, purchaseorders.UpdateInput{
			SupplierID:          req.SupplierID,
			LineItems:           toLineItems(req.LineItems),
			Subtotal:            req.Subtotal,
			Tax:                 req.Tax,
			Shipping:            req.Shipping,
			Total:               req.Total,
			Notes:               req.Notes,
			SupplierNotes:       req.SupplierNotes,
			SupplierOrderNumber: req.SupplierOrderNumber,
			ExpectedDelivery:    req.ExpectedDelivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Status != nil {
			order, err = svc.UpdateStatus(r.Context(), id, *req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, order)
	}
}

func PurchaseOrderRequestQuote(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "purchaseOrderId"), "purchaseOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RequestQuote(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PurchaseOrderAddTracking(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "purchaseOrderId"), "purchaseOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req purchaseOrderTrackingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddTracking(r.Context(), id, purchaseorders.AddTrackingInput{
			Carrier:           req.Carrier,
			TrackingNumber:    req.TrackingNumber,
			TrackingURL:       req.TrackingURL,
			ContactID:         req.ContactID,
			EstimatedDelivery: req.EstimatedDelivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func SupplierList(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suppliers, err := svc.ListSuppliers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": suppliers, "count": len(suppliers)})
	}
}
