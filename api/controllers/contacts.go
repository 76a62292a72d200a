package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amberwayequine/crm-backend/api/responses"
	"github.com/amberwayequine/crm-backend/api/validators"
	"github.com/amberwayequine/crm-backend/internal/contacts"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type contactRequest struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string  `json:"phone,omitempty"`
	Mobile           *string  `json:"mobile,omitempty"`
	Title            *string  `json:"title,omitempty"`
	Company          *string  `json:"company,omitempty"`
	Type             string   `json:"type,omitempty"`
	Address          *string  `json:"address,omitempty"`
	City             *string  `json:"city,omitempty"`
	State            *string  `json:"state,omitempty"`
	Zip              *string  `json:"zip,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Source           *string  `json:"source,omitempty"`
	PreferredContact *string  `json:"preferred_contact,omitempty"`
}

type contactUpdateRequest struct {
	FirstName        *string  `json:"first_name,omitempty"`
	LastName         *string  `json:"last_name,omitempty"`
	Email            *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string  `json:"phone,omitempty"`
	Mobile           *string  `json:"mobile,omitempty"`
	Title            *string  `json:"title,omitempty"`
	Company          *string  `json:"company,omitempty"`
	Type             *string  `json:"type,omitempty"`
	Address          *string  `json:"address,omitempty"`
	City             *string  `json:"city,omitempty"`
	State            *string  `json:"state,omitempty"`
	Zip              *string  `json:"zip,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Source           *string  `json:"source,omitempty"`
	PreferredContact *string  `json:"preferred_contact,omitempty"`
}

func ContactCreate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Create(r.Context(), contacts.CreateInput{
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Email:            req.Email,
			Phone:            req.Phone,
			Mobile:           req.Mobile,
			Title:            req.Title,
			Company:          req.Company,
			Type:             req.Type,
			Address:          req.Address,
			City:             req.City,
			State:            req.State,
			Zip:              req.Zip,
			Notes:            req.Notes,
			Tags:             req.Tags,
			Source:           req.Source,
			PreferredContact: req.PreferredContact,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contact)
	}
}

func ContactGet(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contact, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactList(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), contacts.ListParams{
			Search: r.URL.Query().Get("search"),
			Type:   strings.TrimSpace(r.URL.Query().Get("type")),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ContactUpdate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req contactUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Update(r.Context(), id, contacts.UpdateInput{
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Email:            req.Email,
			Phone:            req.Phone,
			Mobile:           req.Mobile,
			Title:            req.Title,
			Company:          req.Company,
			Type:             req.Type,
			Address:          req.Address,
			City:             req.City,
			State:            req.State,
			Zip:              req.Zip,
			Notes:            req.Notes,
			Tags:             req.Tags,
			Source:           req.Source,
			PreferredContact: req.PreferredContact,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactDelete(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ContactTimeline(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		timeline, err := svc.Timeline(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	}
}
