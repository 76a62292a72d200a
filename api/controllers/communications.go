package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/amberwayequine/crm-backend/api/responses"
	"github.com/amberwayequine/crm-backend/api/validators"
	"github.com/amberwayequine/crm-backend/internal/communications"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type communicationLogRequest struct {
	DealID    *uuid.UUID `json:"deal_id,omitempty"`
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
	Type      string     `json:"type" validate:"required"`
	Direction string     `json:"direction" validate:"required"`
	Subject   *string    `json:"subject,omitempty"`
	Body      *string    `json:"body,omitempty"`
	Summary   *string    `json:"summary,omitempty"`
}

type sendEmailRequest struct {
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
	DealID    *uuid.UUID `json:"deal_id,omitempty"`
	To        string     `json:"to,omitempty" validate:"omitempty,email"`
	Subject   string     `json:"subject" validate:"required"`
	Body      string     `json:"body" validate:"required"`
}

type sendSMSRequest struct {
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
	DealID    *uuid.UUID `json:"deal_id,omitempty"`
	To        string     `json:"to,omitempty"`
	Body      string     `json:"body" validate:"required"`
}

type logCallRequest struct {
	ContactID       *uuid.UUID `json:"contact_id,omitempty"`
	DealID          *uuid.UUID `json:"deal_id,omitempty"`
	Direction       string     `json:"direction,omitempty"`
	Summary         string     `json:"summary" validate:"required"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
}

type draftEmailRequest struct {
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
	Purpose   string     `json:"purpose" validate:"required"`
	Context   string     `json:"context,omitempty"`
}

func CommunicationList(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
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
		contactID, err := validators.ParseQueryUUID(r, "contact_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), communications.ListParams{
			DealID:    dealID,
			ContactID: contactID,
			Type:      strings.TrimSpace(r.URL.Query().Get("type")),
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

func CommunicationLog(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req communicationLogRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comm, err := svc.Log(r.Context(), communications.LogInput{
			DealID:    req.DealID,
			ContactID: req.ContactID,
			Type:      req.Type,
			Direction: req.Direction,
			Subject:   req.Subject,
			Body:      req.Body,
			Summary:   req.Summary,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comm)
	}
}

func CommunicationSendEmail(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendEmailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.SendEmail(r.Context(), communications.SendEmailInput{
			ContactID: req.ContactID,
			DealID:    req.DealID,
			To:        req.To,
			Subject:   req.Subject,
			Body:      req.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func CommunicationSendSMS(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendSMSRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.SendSMS(r.Context(), communications.SendSMSInput{
			ContactID: req.ContactID,
			DealID:    req.DealID,
			To:        req.To,
			Body:      req.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func CommunicationLogCall(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logCallRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comm, err := svc.LogCall(r.Context(), communications.LogCallInput{
			ContactID:       req.ContactID,
			DealID:          req.DealID,
			Direction:       req.Direction,
			Summary:         req.Summary,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comm)
	}
}

func CommunicationDraftEmail(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req draftEmailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.DraftEmail(r.Context(), communications.DraftInput{
			ContactID: req.ContactID,
			Purpose:   req.Purpose,
			Context:   req.Context,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

// TwilioInboundSMS receives Twilio's form-encoded webhook for incoming
// texts. Twilio retries on non-2xx, so record failures but still return 200
// with an empty TwiML body once the payload parses.
func TwilioInboundSMS(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}
		from := r.PostFormValue("From")
		body := r.PostFormValue("Body")
		messageSID := r.PostFormValue("MessageSid")
		if from == "" || body == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "From and Body are required"))
			return
		}

		if _, err := svc.HandleInboundSMS(r.Context(), from, body, messageSID); err != nil && logg != nil {
			logg.Error(r.Context(), "twilio.inbound_sms.failed", err)
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
	}
}
