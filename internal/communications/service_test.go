package communications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/gmail"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
	"github.com/amberwayequine/crm-backend/pkg/twilio"
)

type stubCommsStore struct {
	created []*models.Communication
}

func (s *stubCommsStore) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCommsStore) Create(ctx context.Context, comm *models.Communication) error {
	if comm.ID == uuid.Nil {
		comm.ID = uuid.New()
	}
	s.created = append(s.created, comm)
	return nil
}

func (s *stubCommsStore) CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error {
	return s.Create(ctx, comm)
}

func (s *stubCommsStore) Get(ctx context.Context, id uuid.UUID) (*models.Communication, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCommsStore) List(ctx context.Context, params listParams) ([]models.Communication, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubDirectory struct {
	contact *models.Contact
	touched []uuid.UUID
}

func (s *stubDirectory) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	if s.contact == nil || s.contact.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.contact, nil
}

func (s *stubDirectory) FindByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	if s.contact == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.contact, nil
}

func (s *stubDirectory) TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

type stubActivity struct {
	notices []activity.Notice
}

func (s *stubActivity) Log(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	return nil
}

func (s *stubActivity) Notify(ctx context.Context, tx *gorm.DB, notice activity.Notice) error {
	s.notices = append(s.notices, notice)
	return nil
}

func (s *stubActivity) ListActivity(ctx context.Context, params activity.ListActivityParams) (*activity.ActivityList, error) {
	return &activity.ActivityList{}, nil
}

func (s *stubActivity) ListNotifications(ctx context.Context, params activity.ListNotificationsParams) (*activity.NotificationList, error) {
	return &activity.NotificationList{}, nil
}

func (s *stubActivity) MarkRead(ctx context.Context, notificationID uuid.UUID) error { return nil }

func (s *stubActivity) MarkAllRead(ctx context.Context) (int64, error) { return 0, nil }

type stubEmailSender struct {
	err  error
	sent []gmail.SendRequest
}

func (s *stubEmailSender) Send(ctx context.Context, req gmail.SendRequest) (*gmail.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, req)
	return &gmail.SendResult{MessageID: "msg-1", ThreadID: "thread-1"}, nil
}

func (s *stubEmailSender) FromAddress() string { return "office@amberwayequine.test" }

type stubSMSSender struct {
	err  error
	sent []string
}

func (s *stubSMSSender) SendSMS(ctx context.Context, to, body string) (*twilio.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, to)
	return &twilio.SendResult{SID: "SM123"}, nil
}

func (s *stubSMSSender) PhoneNumber() string { return "+15550100" }

type stubDrafter struct {
	err  error
	body string
}

func (s *stubDrafter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.body, nil
}

func newTestService(t *testing.T, repo Repository, contacts ContactDirectory, act activity.Service, email EmailSender, sms SMSSender, drafter Drafter) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "communications-test"})
	svc, err := NewService(repo, contacts, act, email, sms, drafter, logg)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestLogRejectsUnknownType(t *testing.T) {
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{}, &stubActivity{}, nil, nil, nil)
	_, err := svc.Log(context.Background(), LogInput{Type: "carrier_pigeon", Direction: "outbound"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendEmailWithoutProviderFailsOpen(t *testing.T) {
	repo := &stubCommsStore{}
	svc := newTestService(t, repo, &stubDirectory{}, &stubActivity{}, nil, nil, nil)

	outcome, err := svc.SendEmail(context.Background(), SendEmailInput{
		To:      "jo@example.test",
		Subject: "Stall front quote",
		Body:    "Quote attached.",
	})
	if err != nil {
		t.Fatalf("send email: %v", err)
	}
	if outcome.Success {
		t.Fatal("expected failure outcome without provider")
	}
	if outcome.Reason != "email provider not configured" {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
	if len(repo.created) != 1 || repo.created[0].Status != enums.CommunicationStatusDraft {
		t.Fatalf("expected one draft row, got %+v", repo.created)
	}
}

func TestSendEmailProviderFailureStillLogs(t *testing.T) {
	repo := &stubCommsStore{}
	email := &stubEmailSender{err: errors.New("gmail unreachable")}
	svc := newTestService(t, repo, &stubDirectory{}, &stubActivity{}, email, nil, nil)

	outcome, err := svc.SendEmail(context.Background(), SendEmailInput{
		To:      "jo@example.test",
		Subject: "Stall front quote",
		Body:    "Quote attached.",
	})
	if err != nil {
		t.Fatalf("send email: %v", err)
	}
	if outcome.Success {
		t.Fatal("expected failure outcome")
	}
	if outcome.Reason != "gmail unreachable" {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
	if len(repo.created) != 1 || repo.created[0].Status != enums.CommunicationStatusFailed {
		t.Fatalf("expected failed row, got %+v", repo.created)
	}
}

func TestSendEmailUsesContactAddressAndTouchesContact(t *testing.T) {
	contactEmail := "jo@example.test"
	contact := &models.Contact{ID: uuid.New(), FirstName: "Jo", Email: &contactEmail}
	repo := &stubCommsStore{}
	dir := &stubDirectory{contact: contact}
	email := &stubEmailSender{}
	svc := newTestService(t, repo, dir, &stubActivity{}, email, nil, nil)

	outcome, err := svc.SendEmail(context.Background(), SendEmailInput{
		ContactID: &contact.ID,
		Subject:   "Delivery date",
		Body:      "Your order ships Monday.",
	})
	if err != nil {
		t.Fatalf("send email: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, reason %q", outcome.Reason)
	}
	if len(email.sent) != 1 || email.sent[0].To != contactEmail {
		t.Fatalf("expected send to contact address, got %+v", email.sent)
	}
	comm := repo.created[0]
	if comm.Status != enums.CommunicationStatusSent || comm.SentAt == nil {
		t.Fatalf("expected sent row, got %+v", comm)
	}
	if comm.ProviderMessageID == nil || *comm.ProviderMessageID != "msg-1" {
		t.Fatalf("expected provider message id, got %v", comm.ProviderMessageID)
	}
	if len(dir.touched) != 1 || dir.touched[0] != contact.ID {
		t.Fatalf("expected last_contacted_at touch, got %v", dir.touched)
	}
}

func TestSendSMSPrefersMobileOverPhone(t *testing.T) {
	mobile := "+15551234"
	phone := "+15559999"
	contact := &models.Contact{ID: uuid.New(), FirstName: "Jo", Mobile: &mobile, Phone: &phone}
	repo := &stubCommsStore{}
	sms := &stubSMSSender{}
	svc := newTestService(t, repo, &stubDirectory{contact: contact}, &stubActivity{}, nil, sms, nil)

	outcome, err := svc.SendSMS(context.Background(), SendSMSInput{
		ContactID: &contact.ID,
		Body:      "Your stall fronts arrive Monday",
	})
	if err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, reason %q", outcome.Reason)
	}
	if len(sms.sent) != 1 || sms.sent[0] != mobile {
		t.Fatalf("expected send to mobile, got %v", sms.sent)
	}
}

func TestSendSMSWithoutProviderFailsOpen(t *testing.T) {
	repo := &stubCommsStore{}
	svc := newTestService(t, repo, &stubDirectory{}, &stubActivity{}, nil, nil, nil)

	outcome, err := svc.SendSMS(context.Background(), SendSMSInput{To: "+15551234", Body: "ping"})
	if err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if outcome.Success || outcome.Reason != "sms provider not configured" {
		t.Fatalf("expected fail-open outcome, got %+v", outcome)
	}
	if repo.created[0].Status != enums.CommunicationStatusDraft {
		t.Fatalf("expected draft row, got %s", repo.created[0].Status)
	}
}

func TestLogCallRequiresSummary(t *testing.T) {
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{}, &stubActivity{}, nil, nil, nil)
	_, err := svc.LogCall(context.Background(), LogCallInput{Summary: "   "})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDraftEmailFallsBackToTemplate(t *testing.T) {
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{}, &stubActivity{}, nil, nil, nil)

	draft, err := svc.DraftEmail(context.Background(), DraftInput{Purpose: "follow up on quote"})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.AIGenerated {
		t.Fatal("expected template draft without drafter")
	}
	if !strings.Contains(draft.Body, "Hi there,") {
		t.Fatalf("expected generic greeting, got %q", draft.Body)
	}
	if draft.Subject != "follow up on quote" {
		t.Fatalf("unexpected subject %q", draft.Subject)
	}
}

func TestDraftEmailUsesDrafterWhenAvailable(t *testing.T) {
	contact := &models.Contact{ID: uuid.New(), FirstName: "Jo"}
	drafter := &stubDrafter{body: "Hi Jo, checking in about the stall fronts."}
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{contact: contact}, &stubActivity{}, nil, nil, drafter)

	draft, err := svc.DraftEmail(context.Background(), DraftInput{ContactID: &contact.ID, Purpose: "check in"})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !draft.AIGenerated {
		t.Fatal("expected AI draft")
	}
	if draft.Body != drafter.body {
		t.Fatalf("unexpected body %q", draft.Body)
	}
}

func TestDraftEmailDrafterFailureFallsBack(t *testing.T) {
	drafter := &stubDrafter{err: errors.New("model timeout")}
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{}, &stubActivity{}, nil, nil, drafter)

	draft, err := svc.DraftEmail(context.Background(), DraftInput{Purpose: "check in"})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.AIGenerated {
		t.Fatal("expected template fallback after drafter failure")
	}
}

func TestHandleInboundSMSMatchesContact(t *testing.T) {
	contact := &models.Contact{ID: uuid.New(), FirstName: "Jo", LastName: "Bell"}
	repo := &stubCommsStore{}
	act := &stubActivity{}
	svc := newTestService(t, repo, &stubDirectory{contact: contact}, act, nil, nil, nil)

	comm, err := svc.HandleInboundSMS(context.Background(), "+15551234", "Sounds good", "SM999")
	if err != nil {
		t.Fatalf("inbound sms: %v", err)
	}
	if comm.ContactID == nil || *comm.ContactID != contact.ID {
		t.Fatalf("expected matched contact, got %v", comm.ContactID)
	}
	if comm.Status != enums.CommunicationStatusReceived || comm.Direction != enums.CommunicationDirectionInbound {
		t.Fatalf("unexpected row %s/%s", comm.Status, comm.Direction)
	}
	if len(act.notices) != 1 || act.notices[0].Title != "Text from Jo Bell" {
		t.Fatalf("expected named notification, got %+v", act.notices)
	}
}

func TestHandleInboundSMSUnknownSender(t *testing.T) {
	repo := &stubCommsStore{}
	act := &stubActivity{}
	svc := newTestService(t, repo, &stubDirectory{}, act, nil, nil, nil)

	comm, err := svc.HandleInboundSMS(context.Background(), "+15550000", "Who is this?", "")
	if err != nil {
		t.Fatalf("inbound sms: %v", err)
	}
	if comm.ContactID != nil {
		t.Fatalf("expected no contact match, got %v", comm.ContactID)
	}
	if act.notices[0].Title != "Text from +15550000" {
		t.Fatalf("expected number in title, got %q", act.notices[0].Title)
	}
}

func TestHandleInboundSMSRequiresSender(t *testing.T) {
	svc := newTestService(t, &stubCommsStore{}, &stubDirectory{}, &stubActivity{}, nil, nil, nil)
	_, err := svc.HandleInboundSMS(context.Background(), "  ", "hello", "")
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
