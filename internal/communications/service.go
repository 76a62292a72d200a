package communications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/gmail"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
	"github.com/amberwayequine/crm-backend/pkg/twilio"
)

// Service defines communication logging and provider send flows. Provider
// failures never surface as request errors: the attempt is recorded as a
// failed communication row and the outcome carries the reason.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Log(ctx context.Context, input LogInput) (*models.Communication, error)
	SendEmail(ctx context.Context, input SendEmailInput) (*SendOutcome, error)
	SendSMS(ctx context.Context, input SendSMSInput) (*SendOutcome, error)
	LogCall(ctx context.Context, input LogCallInput) (*models.Communication, error)
	DraftEmail(ctx context.Context, input DraftInput) (*DraftResult, error)
	HandleInboundSMS(ctx context.Context, from, body, providerMessageID string) (*models.Communication, error)
}

// ContactDirectory is the slice of the contacts repository this service needs.
type ContactDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	FindByPhone(ctx context.Context, phone string) (*models.Contact, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) error
}

// EmailSender is the Gmail client surface used for outbound mail.
type EmailSender interface {
	Send(ctx context.Context, req gmail.SendRequest) (*gmail.SendResult, error)
	FromAddress() string
}

// SMSSender is the Twilio client surface used for outbound texts.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (*twilio.SendResult, error)
	PhoneNumber() string
}

// Drafter is the completion surface used for AI email drafting.
type Drafter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type service struct {
	repo     Repository
	contacts ContactDirectory
	activity activity.Service
	email    EmailSender
	sms      SMSSender
	drafter  Drafter
	logg     *logger.Logger
}

// ListParams filters the communication feed.
type ListParams struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Type      string
	Limit     int
	Cursor    string
}

// ListResult wraps returned communications and the cursor for the next page.
type ListResult struct {
	Items  []models.Communication `json:"items"`
	Cursor string                 `json:"cursor"`
}

// LogInput records a communication that happened outside the system.
type LogInput struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Type      string
	Direction string
	Subject   *string
	Body      *string
	Summary   *string
}

// SendEmailInput describes one outbound email request.
type SendEmailInput struct {
	ContactID *uuid.UUID
	DealID    *uuid.UUID
	To        string
	Subject   string
	Body      string
}

// SendSMSInput describes one outbound text request.
type SendSMSInput struct {
	ContactID *uuid.UUID
	DealID    *uuid.UUID
	To        string
	Body      string
}

// LogCallInput records a phone call summary.
type LogCallInput struct {
	ContactID       *uuid.UUID
	DealID          *uuid.UUID
	Direction       string
	Summary         string
	DurationSeconds *int
}

// DraftInput asks for an email draft for a contact or deal.
type DraftInput struct {
	ContactID *uuid.UUID
	Purpose   string
	Context   string
}

// DraftResult carries the generated draft and whether AI produced it.
type DraftResult struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	AIGenerated bool   `json:"ai_generated"`
}

// SendOutcome reports a fail-open send attempt. Success false means the
// provider was unavailable or rejected the message; the communication row
// exists either way.
type SendOutcome struct {
	Communication *models.Communication `json:"communication"`
	Success       bool                  `json:"success"`
	Reason        string                `json:"reason,omitempty"`
}

// NewService wires communications dependencies. Provider clients are
// optional; a nil client downgrades the matching send flow to fail-open
// logging.
func NewService(repo Repository, contacts ContactDirectory, activitySvc activity.Service, email EmailSender, sms SMSSender, drafter Drafter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications repository required")
	}
	if contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact directory required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     repo,
		contacts: contacts,
		activity: activitySvc,
		email:    email,
		sms:      sms,
		drafter:  drafter,
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		DealID:    params.DealID,
		ContactID: params.ContactID,
		Limit:     params.Limit,
	}
	if params.Type != "" {
		commType, err := enums.ParseCommunicationType(params.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		query.Type = &commType
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list communications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Log(ctx context.Context, input LogInput) (*models.Communication, error) {
	commType, err := enums.ParseCommunicationType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid communication type")
	}
	direction := enums.CommunicationDirection(input.Direction)
	if direction == "" {
		direction = enums.CommunicationDirectionInternal
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid communication direction")
	}

	comm := models.Communication{
		DealID:    input.DealID,
		ContactID: input.ContactID,
		Type:      commType,
		Direction: direction,
		Subject:   input.Subject,
		Body:      input.Body,
		Summary:   input.Summary,
		Status:    enums.CommunicationStatusLogged,
	}
	if err := s.repo.Create(ctx, &comm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create communication")
	}
	return &comm, nil
}

func (s *service) SendEmail(ctx context.Context, input SendEmailInput) (*SendOutcome, error) {
	to := strings.TrimSpace(input.To)
	contact, err := s.resolveContact(ctx, input.ContactID)
	if err != nil {
		return nil, err
	}
	if to == "" && contact != nil && contact.Email != nil {
		to = *contact.Email
	}
	if to == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	comm := models.Communication{
		DealID:    input.DealID,
		ContactID: input.ContactID,
		Type:      enums.CommunicationTypeEmail,
		Direction: enums.CommunicationDirectionOutbound,
		Subject:   &input.Subject,
		Body:      &input.Body,
		ToAddress: &to,
	}

	outcome := &SendOutcome{Communication: &comm}
	switch {
	case s.email == nil:
		comm.Status = enums.CommunicationStatusDraft
		outcome.Reason = "email provider not configured"
	default:
		result, sendErr := s.email.Send(ctx, gmail.SendRequest{To: to, Subject: input.Subject, Body: input.Body})
		if sendErr != nil {
			comm.Status = enums.CommunicationStatusFailed
			outcome.Reason = sendErr.Error()
			s.logg.Warn(s.logg.WithField(ctx, "to", to), "email send failed, logging communication anyway")
		} else {
			now := time.Now().UTC()
			from := s.email.FromAddress()
			comm.Status = enums.CommunicationStatusSent
			comm.SentAt = &now
			comm.FromAddress = &from
			comm.ProviderMessageID = &result.MessageID
			comm.ProviderThreadID = &result.ThreadID
			outcome.Success = true
		}
	}

	if err := s.repo.Create(ctx, &comm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create communication")
	}
	s.touchContact(ctx, input.ContactID)
	return outcome, nil
}

func (s *service) SendSMS(ctx context.Context, input SendSMSInput) (*SendOutcome, error) {
	to := strings.TrimSpace(input.To)
	contact, err := s.resolveContact(ctx, input.ContactID)
	if err != nil {
		return nil, err
	}
	if to == "" && contact != nil {
		if contact.Mobile != nil {
			to = *contact.Mobile
		} else if contact.Phone != nil {
			to = *contact.Phone
		}
	}
	if to == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient phone number is required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	comm := models.Communication{
		DealID:    input.DealID,
		ContactID: input.ContactID,
		Type:      enums.CommunicationTypeSMS,
		Direction: enums.CommunicationDirectionOutbound,
		Body:      &input.Body,
		ToAddress: &to,
	}

	outcome := &SendOutcome{Communication: &comm}
	switch {
	case s.sms == nil:
		comm.Status = enums.CommunicationStatusDraft
		outcome.Reason = "sms provider not configured"
	default:
		result, sendErr := s.sms.SendSMS(ctx, to, input.Body)
		if sendErr != nil {
			comm.Status = enums.CommunicationStatusFailed
			outcome.Reason = sendErr.Error()
			s.logg.Warn(s.logg.WithField(ctx, "to", to), "sms send failed, logging communication anyway")
		} else {
			now := time.Now().UTC()
			from := s.sms.PhoneNumber()
			comm.Status = enums.CommunicationStatusSent
			comm.SentAt = &now
			comm.FromAddress = &from
			comm.ProviderMessageID = &result.SID
			outcome.Success = true
		}
	}

	if err := s.repo.Create(ctx, &comm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create communication")
	}
	s.touchContact(ctx, input.ContactID)
	return outcome, nil
}

func (s *service) LogCall(ctx context.Context, input LogCallInput) (*models.Communication, error) {
	if strings.TrimSpace(input.Summary) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "call summary is required")
	}
	direction := enums.CommunicationDirection(input.Direction)
	if direction == "" {
		direction = enums.CommunicationDirectionOutbound
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid call direction")
	}

	comm := models.Communication{
		DealID:          input.DealID,
		ContactID:       input.ContactID,
		Type:            enums.CommunicationTypeCall,
		Direction:       direction,
		Summary:         &input.Summary,
		DurationSeconds: input.DurationSeconds,
		Status:          enums.CommunicationStatusLogged,
	}
	if err := s.repo.Create(ctx, &comm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create communication")
	}
	s.touchContact(ctx, input.ContactID)
	return &comm, nil
}

func (s *service) DraftEmail(ctx context.Context, input DraftInput) (*DraftResult, error) {
	if strings.TrimSpace(input.Purpose) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft purpose is required")
	}

	contact, err := s.resolveContact(ctx, input.ContactID)
	if err != nil {
		return nil, err
	}
	name := "there"
	if contact != nil {
		name = contact.FirstName
	}

	if s.drafter != nil {
		system := "You draft short, friendly sales emails for Amberway Equine, a horse-equipment dealer. Plain text only."
		user := fmt.Sprintf("Write an email to %s. Purpose: %s.", name, input.Purpose)
		if input.Context != "" {
			user += " Context: " + input.Context
		}
		body, draftErr := s.drafter.Complete(ctx, system, user)
		if draftErr == nil {
			return &DraftResult{Subject: input.Purpose, Body: body, AIGenerated: true}, nil
		}
		s.logg.Warn(ctx, "ai draft failed, falling back to template")
	}

	body := fmt.Sprintf("Hi %s,\n\nI wanted to follow up regarding %s. Let me know if you have any questions or if there is anything I can help with.\n\nBest,\nAmberway Equine", name, input.Purpose)
	return &DraftResult{Subject: input.Purpose, Body: body, AIGenerated: false}, nil
}

func (s *service) HandleInboundSMS(ctx context.Context, from, body, providerMessageID string) (*models.Communication, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender phone number is required")
	}

	var contactID *uuid.UUID
	title := "Text from " + from
	contact, err := s.contacts.FindByPhone(ctx, from)
	if err == nil && contact != nil {
		contactID = &contact.ID
		title = "Text from " + contact.FullName()
	}

	now := time.Now().UTC()
	comm := models.Communication{
		ContactID:   contactID,
		Type:        enums.CommunicationTypeSMS,
		Direction:   enums.CommunicationDirectionInbound,
		Body:        &body,
		Status:      enums.CommunicationStatusReceived,
		FromAddress: &from,
		SentAt:      &now,
	}
	if providerMessageID != "" {
		comm.ProviderMessageID = &providerMessageID
	}
	if err := s.repo.Create(ctx, &comm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create communication")
	}

	notice := activity.Notice{
		Type:       enums.NotificationTypeCommunication,
		Title:      title,
		Message:    body,
		EntityType: enums.EntityTypeCommunication,
		EntityID:   &comm.ID,
		Priority:   enums.NotificationPriorityNormal,
	}
	if err := s.activity.Notify(ctx, nil, notice); err != nil {
		s.logg.Error(ctx, "notify inbound sms", err)
	}

	return &comm, nil
}

func (s *service) resolveContact(ctx context.Context, contactID *uuid.UUID) (*models.Contact, error) {
	if contactID == nil {
		return nil, nil
	}
	contact, err := s.contacts.Get(ctx, *contactID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contact not found")
	}
	return contact, nil
}

func (s *service) touchContact(ctx context.Context, contactID *uuid.UUID) {
	if contactID == nil {
		return
	}
	if err := s.contacts.TouchLastContacted(ctx, *contactID, time.Now().UTC()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "contact_id", contactID.String()), "failed to stamp last_contacted_at")
	}
}
