package shipments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubShipmentsRepo struct {
	shipment   *models.Shipment
	created    []*models.Shipment
	updated    []*models.Shipment
	active     []models.Shipment
	receivedPO *uuid.UUID
}

func (s *stubShipmentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubShipmentsRepo) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	s.created = append(s.created, shipment)
	return nil
}

func (s *stubShipmentsRepo) CreateTx(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
	return s.Create(ctx, shipment)
}

func (s *stubShipmentsRepo) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	if s.shipment == nil || s.shipment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.shipment
	return &copied, nil
}

func (s *stubShipmentsRepo) List(ctx context.Context, params listParams) ([]models.Shipment, *pagination.Cursor, error) {
	return s.active, nil, nil
}

func (s *stubShipmentsRepo) ListByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]models.Shipment, error) {
	return s.active, nil
}

func (s *stubShipmentsRepo) ListActive(ctx context.Context, limit int) ([]models.Shipment, error) {
	return s.active, nil
}

func (s *stubShipmentsRepo) Update(ctx context.Context, shipment *models.Shipment) error {
	s.updated = append(s.updated, shipment)
	return nil
}

func (s *stubShipmentsRepo) MarkPurchaseOrderReceived(ctx context.Context, poID uuid.UUID, now time.Time) error {
	s.receivedPO = &poID
	return nil
}

type stubDealStore struct {
	deal    *models.Deal
	updated []*models.Deal
}

func (s *stubDealStore) GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Deal, error) {
	if s.deal == nil || s.deal.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.deal, nil
}

func (s *stubDealStore) UpdateTx(ctx context.Context, tx *gorm.DB, deal *models.Deal) error {
	s.updated = append(s.updated, deal)
	return nil
}

type stubTaskStore struct {
	created []*models.Task
}

func (s *stubTaskStore) CreateTx(ctx context.Context, tx *gorm.DB, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	s.created = append(s.created, task)
	return nil
}

type stubContactSource struct {
	contact *models.Contact
}

func (s *stubContactSource) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	if s.contact == nil || s.contact.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.contact, nil
}

type stubActivity struct {
	entries []activity.Entry
	notices []activity.Notice
}

func (s *stubActivity) Log(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	s.entries = append(s.entries, entry)
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

type stubCommsRepo struct {
	created []*models.Communication
}

func (s *stubCommsRepo) CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error {
	s.created = append(s.created, comm)
	return nil
}

type testDeps struct {
	repo     *stubShipmentsRepo
	deals    *stubDealStore
	tasks    *stubTaskStore
	contacts *stubContactSource
	activity *stubActivity
	comms    *stubCommsRepo
}

func newTestService(t *testing.T, deps testDeps) Service {
	t.Helper()
	if deps.repo == nil {
		deps.repo = &stubShipmentsRepo{}
	}
	if deps.deals == nil {
		deps.deals = &stubDealStore{}
	}
	if deps.tasks == nil {
		deps.tasks = &stubTaskStore{}
	}
	if deps.contacts == nil {
		deps.contacts = &stubContactSource{}
	}
	if deps.activity == nil {
		deps.activity = &stubActivity{}
	}
	if deps.comms == nil {
		deps.comms = &stubCommsRepo{}
	}
	svc, err := NewService(stubTxRunner{}, deps.repo, deps.deals, deps.tasks, deps.contacts, deps.activity, deps.comms)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestCreateRequiresCarrierAndTrackingNumber(t *testing.T) {
	svc := newTestService(t, testDeps{})
	_, err := svc.Create(context.Background(), CreateInput{Carrier: "UPS"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMovesDealToShippingAndNotifies(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), Stage: enums.DealStageOrderConfirmed}
	repo := &stubShipmentsRepo{}
	dealsStore := &stubDealStore{deal: deal}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{repo: repo, deals: dealsStore, activity: act})

	shipment, err := svc.Create(context.Background(), CreateInput{
		DealID:         &deal.ID,
		Carrier:        "UPS",
		TrackingNumber: "1Z999AA10123456784",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if shipment.Status != enums.ShipmentStatusInTransit {
		t.Fatalf("expected in_transit, got %s", shipment.Status)
	}
	if shipment.TrackingURL == nil || !strings.Contains(*shipment.TrackingURL, "ups.com") {
		t.Fatalf("expected derived UPS tracking url, got %v", shipment.TrackingURL)
	}
	if len(shipment.TrackingHistory) != 1 {
		t.Fatalf("expected one seed tracking event, got %d", len(shipment.TrackingHistory))
	}
	if deal.Stage != enums.DealStageShipping {
		t.Fatalf("expected deal moved to shipping, got %s", deal.Stage)
	}
	if len(act.notices) != 1 || act.notices[0].Priority != enums.NotificationPriorityHigh {
		t.Fatalf("expected one high-priority notification, got %+v", act.notices)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t, testDeps{})
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusInput{Status: "teleported"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusPrependsEventWithoutCascade(t *testing.T) {
	shipment := &models.Shipment{
		ID:             uuid.New(),
		Carrier:        "FedEx",
		TrackingNumber: "449044304137821",
		Status:         enums.ShipmentStatusInTransit,
	}
	repo := &stubShipmentsRepo{shipment: shipment}
	tasksStore := &stubTaskStore{}
	svc := newTestService(t, testDeps{repo: repo, tasks: tasksStore})

	location := "Memphis, TN"
	result, err := svc.UpdateStatus(context.Background(), shipment.ID, StatusInput{
		Status:   "out_for_delivery",
		Location: &location,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if result.TasksCreated != 0 {
		t.Fatalf("expected no tasks outside delivered, got %d", result.TasksCreated)
	}
	if len(tasksStore.created) != 0 {
		t.Fatalf("expected no task writes, got %d", len(tasksStore.created))
	}
	updated := result.Shipment
	if updated.Status != enums.ShipmentStatusOutForDelivery {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(updated.TrackingHistory) != 1 || updated.TrackingHistory[0].Status != "out_for_delivery" {
		t.Fatalf("expected newest event first, got %+v", updated.TrackingHistory)
	}
	if updated.CurrentLocation == nil || *updated.CurrentLocation != location {
		t.Fatalf("expected location recorded, got %v", updated.CurrentLocation)
	}
	if updated.ActualDelivery != nil {
		t.Fatal("actual delivery should only be set on delivered")
	}
}

func TestDeliveredCascade(t *testing.T) {
	contact := &models.Contact{ID: uuid.New(), FirstName: "Jo", LastName: "Bell"}
	deal := &models.Deal{ID: uuid.New(), ContactID: &contact.ID, Stage: enums.DealStageShipping}
	poID := uuid.New()
	shipment := &models.Shipment{
		ID:              uuid.New(),
		PurchaseOrderID: &poID,
		DealID:          &deal.ID,
		ContactID:       &contact.ID,
		Carrier:         "UPS",
		TrackingNumber:  "1Z999AA10123456784",
		Status:          enums.ShipmentStatusOutForDelivery,
	}
	repo := &stubShipmentsRepo{shipment: shipment}
	dealsStore := &stubDealStore{deal: deal}
	tasksStore := &stubTaskStore{}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{
		repo:     repo,
		deals:    dealsStore,
		tasks:    tasksStore,
		contacts: &stubContactSource{contact: contact},
		activity: act,
	})

	result, err := svc.UpdateStatus(context.Background(), shipment.ID, StatusInput{Status: "delivered"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if result.TasksCreated != 2 {
		t.Fatalf("expected 2 follow-up tasks, got %d", result.TasksCreated)
	}
	if result.Shipment.ActualDelivery == nil {
		t.Fatal("expected actual delivery stamped")
	}
	if deal.Stage != enums.DealStageDelivered {
		t.Fatalf("expected deal moved to delivered, got %s", deal.Stage)
	}
	if repo.receivedPO == nil || *repo.receivedPO != poID {
		t.Fatalf("expected purchase order marked received, got %v", repo.receivedPO)
	}

	if len(tasksStore.created) != 2 {
		t.Fatalf("expected 2 task writes, got %d", len(tasksStore.created))
	}
	confirm, review := tasksStore.created[0], tasksStore.created[1]
	if confirm.Title != "Confirm delivery with Jo Bell" || confirm.Priority != enums.TaskPriorityHigh {
		t.Fatalf("unexpected confirm task %q %s", confirm.Title, confirm.Priority)
	}
	if review.Title != "Request review and referral from Jo Bell" || review.Priority != enums.TaskPriorityMedium {
		t.Fatalf("unexpected review task %q %s", review.Title, review.Priority)
	}
	if confirm.DueDate == nil || review.DueDate == nil || !review.DueDate.After(*confirm.DueDate) {
		t.Fatal("expected review task due after confirm task")
	}

	if len(act.notices) != 1 {
		t.Fatalf("expected one notification, got %d", len(act.notices))
	}
	notice := act.notices[0]
	if notice.Priority != enums.NotificationPriorityHigh {
		t.Fatalf("expected high priority, got %s", notice.Priority)
	}
	if !strings.Contains(notice.Message, "2 follow-up tasks created") {
		t.Fatalf("unexpected notification message %q", notice.Message)
	}
}

func TestDeliveredCascadeWithoutDealSkipsDealWork(t *testing.T) {
	shipment := &models.Shipment{
		ID:             uuid.New(),
		Carrier:        "USPS",
		TrackingNumber: "9400100000000000000000",
		Status:         enums.ShipmentStatusInTransit,
	}
	repo := &stubShipmentsRepo{shipment: shipment}
	tasksStore := &stubTaskStore{}
	svc := newTestService(t, testDeps{repo: repo, tasks: tasksStore})

	result, err := svc.UpdateStatus(context.Background(), shipment.ID, StatusInput{Status: "delivered"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if result.TasksCreated != 0 || len(tasksStore.created) != 0 {
		t.Fatalf("expected no tasks without a deal, got %d", result.TasksCreated)
	}
	if result.Shipment.ActualDelivery == nil {
		t.Fatal("expected actual delivery stamped")
	}
}

func TestNotifyCustomerLogsTrackingEmailOnce(t *testing.T) {
	dealID := uuid.New()
	contactID := uuid.New()
	shipment := &models.Shipment{
		ID:             uuid.New(),
		DealID:         &dealID,
		ContactID:      &contactID,
		Carrier:        "UPS",
		TrackingNumber: "1Z999AA10123456784",
		Status:         enums.ShipmentStatusInTransit,
	}
	repo := &stubShipmentsRepo{shipment: shipment}
	comms := &stubCommsRepo{}
	svc := newTestService(t, testDeps{repo: repo, comms: comms})

	notified, err := svc.NotifyCustomer(context.Background(), shipment.ID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !notified.CustomerNotified {
		t.Fatal("expected customer notified flag")
	}
	if len(comms.created) != 1 {
		t.Fatalf("expected one logged email, got %d", len(comms.created))
	}
	comm := comms.created[0]
	if comm.Type != enums.CommunicationTypeEmail || comm.Direction != enums.CommunicationDirectionOutbound {
		t.Fatalf("unexpected communication %s/%s", comm.Type, comm.Direction)
	}

	// Second notify on an already-notified shipment must not log again.
	shipment.CustomerNotified = true
	if _, err := svc.NotifyCustomer(context.Background(), shipment.ID); err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if len(comms.created) != 1 {
		t.Fatalf("expected no duplicate email, got %d", len(comms.created))
	}
}

func TestAddEventKeepsCanonicalStatus(t *testing.T) {
	shipment := &models.Shipment{
		ID:             uuid.New(),
		Carrier:        "Estes",
		TrackingNumber: "123456789",
		Status:         enums.ShipmentStatusInTransit,
	}
	repo := &stubShipmentsRepo{shipment: shipment}
	svc := newTestService(t, testDeps{repo: repo})

	updated, err := svc.AddEvent(context.Background(), shipment.ID, EventInput{
		Description: "Arrived at terminal",
		Location:    "Richmond, VA",
	})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if updated.Status != enums.ShipmentStatusInTransit {
		t.Fatalf("status should not change, got %s", updated.Status)
	}
	if len(updated.TrackingHistory) != 1 || updated.TrackingHistory[0].Description != "Arrived at terminal" {
		t.Fatalf("expected manual event recorded, got %+v", updated.TrackingHistory)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t, testDeps{})
	_, err := svc.Get(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
