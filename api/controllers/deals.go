package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amberwayequine/crm-backend/api/responses"
	"github.com/amberwayequine/crm-backend/api/validators"
	"github.com/amberwayequine/crm-backend/internal/deals"
	"github.com/amberwayequine/crm-backend/pkg/config"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

const cleanupSecretHeader = "X-Cleanup-Secret"

type dealCreateRequest struct {
	Title             string          `json:"title" validate:"required"`
	ContactID         *uuid.UUID      `json:"contact_id,omitempty"`
	Stage             string          `json:"stage,omitempty"`
	Priority          string          `json:"priority,omitempty"`
	Value             decimal.Decimal `json:"value"`
	Probability       int             `json:"probability" validate:"min=0,max=100"`
	ProductCategories []string        `json:"product_categories,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	ExpectedCloseDate *time.Time      `json:"expected_close_date,omitempty"`
}

type dealUpdateRequest struct {
	Title             *string          `json:"title,omitempty"`
	ContactID         *uuid.UUID       `json:"contact_id,omitempty"`
	Priority          *string          `json:"priority,omitempty"`
	Value             *decimal.Decimal `json:"value,omitempty"`
	Probability       *int             `json:"probability,omitempty"`
	ProductCategories []string         `json:"product_categories,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	ExpectedCloseDate *time.Time       `json:"expected_close_date,omitempty"`
}

type dealStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type dealLostRequest struct {
	Reason string `json:"reason,omitempty"`
}

func DealCreate(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dealCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), deals.CreateInput{
			Title:             req.Title,
			ContactID:         req.ContactID,
			Stage:             req.Stage,
			Priority:          req.Priority,
			Value:             req.Value,
			Probability:       req.Probability,
			ProductCategories: req.ProductCategories,
			Notes:             req.Notes,
			ExpectedCloseDate: req.ExpectedCloseDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func DealGet(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func DealList(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contactID, err := validators.ParseQueryUUID(r, "contact_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), deals.ListParams{
			Stage:     strings.TrimSpace(r.URL.Query().Get("stage")),
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
			ContactID: contactID,
			Search:    r.URL.Query().Get("search"),
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DealPipeline(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Pipeline(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DealUpdate(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req dealUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deal, err := svc.Update(r.Context(), id, deals.UpdateInput{
			Title:             req.Title,
			ContactID:         req.ContactID,
			Priority:          req.Priority,
			Value:             req.Value,
			Probability:       req.Probability,
			ProductCategories: req.ProductCategories,
			Notes:             req.Notes,
			ExpectedCloseDate: req.ExpectedCloseDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func DealMoveStage(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req dealStageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MoveStage(r.Context(), id, req.Stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DealMarkWon(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.MarkWon(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func DealMarkLost(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req dealLostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.MarkLost(r.Context(), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func DealArchive(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "dealId"), "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Archive(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"archived": true})
	}
}

// DealStalePreview lists the deals the sweep would close, without touching
// them.
func DealStalePreview(svc deals.Service, cfg config.AdminConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkCleanupSecret(r, cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", 0, 1, 3650)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stale, err := svc.StalePreview(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deals": stale, "count": len(stale)})
	}
}

func DealStaleCleanup(svc deals.Service, cfg config.AdminConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkCleanupSecret(r, cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", 0, 1, 3650)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.StaleSweep(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// checkCleanupSecret guards the admin endpoints when a secret is
// configured. An empty configured secret leaves them open for local use.
func checkCleanupSecret(r *http.Request, cfg config.AdminConfig) error {
	if cfg.CleanupSecret == "" {
		return nil
	}
	provided := r.Header.Get(cleanupSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.CleanupSecret)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid cleanup secret")
	}
	return nil
}
