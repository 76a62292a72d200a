package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/internal/communications"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type stubContactsRepo struct {
	contact *models.Contact
	listed  []models.Contact
	created []*models.Contact
	updated []*models.Contact
	deleted bool
}

func (s *stubContactsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubContactsRepo) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	s.created = append(s.created, contact)
	return nil
}

func (s *stubContactsRepo) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	if s.contact == nil || s.contact.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.contact
	return &copied, nil
}

func (s *stubContactsRepo) FindByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	if s.contact == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.contact, nil
}

func (s *stubContactsRepo) List(ctx context.Context, params listParams) ([]models.Contact, *pagination.Cursor, error) {
	return s.listed, nil, nil
}

func (s *stubContactsRepo) Update(ctx context.Context, contact *models.Contact) error {
	s.updated = append(s.updated, contact)
	return nil
}

func (s *stubContactsRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.deleted = true
	return s.contact != nil && s.contact.ID == id, nil
}

func (s *stubContactsRepo) TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return nil
}

type stubActivity struct {
	entries []activity.Entry
	listed  []models.ActivityLog
}

func (s *stubActivity) Log(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubActivity) Notify(ctx context.Context, tx *gorm.DB, notice activity.Notice) error {
	return nil
}

func (s *stubActivity) ListActivity(ctx context.Context, params activity.ListActivityParams) (*activity.ActivityList, error) {
	return &activity.ActivityList{Items: s.listed}, nil
}

func (s *stubActivity) ListNotifications(ctx context.Context, params activity.ListNotificationsParams) (*activity.NotificationList, error) {
	return &activity.NotificationList{}, nil
}

func (s *stubActivity) MarkRead(ctx context.Context, notificationID uuid.UUID) error { return nil }

func (s *stubActivity) MarkAllRead(ctx context.Context) (int64, error) { return 0, nil }

type stubCommsService struct {
	listed []models.Communication
}

func (s *stubCommsService) List(ctx context.Context, params communications.ListParams) (*communications.ListResult, error) {
	return &communications.ListResult{Items: s.listed}, nil
}

func (s *stubCommsService) Log(ctx context.Context, input communications.LogInput) (*models.Communication, error) {
	return nil, nil
}

func (s *stubCommsService) SendEmail(ctx context.Context, input communications.SendEmailInput) (*communications.SendOutcome, error) {
	return nil, nil
}

func (s *stubCommsService) SendSMS(ctx context.Context, input communications.SendSMSInput) (*communications.SendOutcome, error) {
	return nil, nil
}

func (s *stubCommsService) LogCall(ctx context.Context, input communications.LogCallInput) (*models.Communication, error) {
	return nil, nil
}

func (s *stubCommsService) DraftEmail(ctx context.Context, input communications.DraftInput) (*communications.DraftResult, error) {
	return nil, nil
}

func (s *stubCommsService) HandleInboundSMS(ctx context.Context, from, body, providerMessageID string) (*models.Communication, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo *stubContactsRepo, act *stubActivity, comms *stubCommsService) Service {
	t.Helper()
	svc, err := NewService(repo, act, comms)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestCreateRequiresAName(t *testing.T) {
	svc := newTestService(t, &stubContactsRepo{}, &stubActivity{}, &stubCommsService{})
	_, err := svc.Create(context.Background(), CreateInput{FirstName: "  ", LastName: ""})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDefaultsToLeadAndLogsActivity(t *testing.T) {
	repo := &stubContactsRepo{}
	act := &stubActivity{}
	svc := newTestService(t, repo, act, &stubCommsService{})

	contact, err := svc.Create(context.Background(), CreateInput{FirstName: " Dana ", LastName: "Wells"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if contact.Type != enums.ContactTypeLead {
		t.Fatalf("expected lead default, got %s", contact.Type)
	}
	if contact.FirstName != "Dana" {
		t.Fatalf("expected trimmed name, got %q", contact.FirstName)
	}
	if len(act.entries) != 1 || act.entries[0].Action != "created" {
		t.Fatalf("expected created activity entry, got %+v", act.entries)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(t, &stubContactsRepo{}, &stubActivity{}, &stubCommsService{})
	_, err := svc.Create(context.Background(), CreateInput{FirstName: "Dana", Type: "stranger"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateLeavesUnsetFieldsAlone(t *testing.T) {
	email := "dana@example.test"
	contact := &models.Contact{ID: uuid.New(), FirstName: "Dana", LastName: "Wells", Email: &email, Type: enums.ContactTypeLead}
	repo := &stubContactsRepo{contact: contact}
	svc := newTestService(t, repo, &stubActivity{}, &stubCommsService{})

	newType := "customer"
	updated, err := svc.Update(context.Background(), contact.ID, UpdateInput{Type: &newType})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Type != enums.ContactTypeCustomer {
		t.Fatalf("expected customer, got %s", updated.Type)
	}
	if updated.Email == nil || *updated.Email != email {
		t.Fatalf("email should be untouched, got %v", updated.Email)
	}
	if updated.FirstName != "Dana" {
		t.Fatalf("first name should be untouched, got %q", updated.FirstName)
	}
}

func TestDeleteUnknownContact(t *testing.T) {
	svc := newTestService(t, &stubContactsRepo{}, &stubActivity{}, &stubCommsService{})
	err := svc.Delete(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTimelineMergesActivityAndCommunications(t *testing.T) {
	contact := &models.Contact{ID: uuid.New(), FirstName: "Dana", LastName: "Wells"}
	repo := &stubContactsRepo{contact: contact}
	act := &stubActivity{listed: []models.ActivityLog{{ID: uuid.New(), Action: "created"}}}
	comms := &stubCommsService{listed: []models.Communication{{ID: uuid.New(), Type: enums.CommunicationTypeCall}}}
	svc := newTestService(t, repo, act, comms)

	timeline, err := svc.Timeline(context.Background(), contact.ID, 20)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if timeline.Contact.ID != contact.ID {
		t.Fatalf("unexpected contact %v", timeline.Contact.ID)
	}
	if len(timeline.Activity) != 1 || len(timeline.Communications) != 1 {
		t.Fatalf("expected both feeds populated, got %d/%d", len(timeline.Activity), len(timeline.Communications))
	}
}
