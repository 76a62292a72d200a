package billing

import (
	"context"
	"strings"
	"testing"
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

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubBillingRepo struct {
	invoice          *models.Invoice
	createdEstimates []*models.Estimate
	createdInvoices  []*models.Invoice
	updatedInvoices  []*models.Invoice
}

func (s *stubBillingRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubBillingRepo) CreateEstimate(ctx context.Context, estimate *models.Estimate) error {
	if estimate.ID == uuid.Nil {
		estimate.ID = uuid.New()
	}
	s.createdEstimates = append(s.createdEstimates, estimate)
	return nil
}

func (s *stubBillingRepo) ListEstimates(ctx context.Context, params listParams) ([]models.Estimate, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubBillingRepo) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	s.createdInvoices = append(s.createdInvoices, invoice)
	return nil
}

func (s *stubBillingRepo) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if s.invoice == nil || s.invoice.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.invoice
	return &copied, nil
}

func (s *stubBillingRepo) ListInvoices(ctx context.Context, params listParams) ([]models.Invoice, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubBillingRepo) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	s.updatedInvoices = append(s.updatedInvoices, invoice)
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

type testDeps struct {
	repo     *stubBillingRepo
	deals    *stubDealStore
	activity *stubActivity
}

func newTestService(t *testing.T, deps testDeps) Service {
	t.Helper()
	if deps.repo == nil {
		deps.repo = &stubBillingRepo{}
	}
	if deps.deals == nil {
		deps.deals = &stubDealStore{}
	}
	if deps.activity == nil {
		deps.activity = &stubActivity{}
	}
	svc, err := NewService(stubTxRunner{}, deps.repo, deps.deals, deps.activity)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestGenerateEstimateNumberFormat(t *testing.T) {
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	got := generateEstimateNumber(now)
	if !strings.HasPrefix(got, "EST-2508-") {
		t.Fatalf("unexpected prefix in %q", got)
	}
	if len(got) != len("EST-2508-0000") {
		t.Fatalf("unexpected length for %q", got)
	}
}

func TestGenerateInvoiceNumberFormat(t *testing.T) {
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	got := generateInvoiceNumber(now)
	if !strings.HasPrefix(got, "INV-2508-") {
		t.Fatalf("unexpected prefix in %q", got)
	}
	if len(got) != len("INV-2508-0000") {
		t.Fatalf("unexpected length for %q", got)
	}
}

func TestCreateEstimateDefaultsValidUntil(t *testing.T) {
	repo := &stubBillingRepo{}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{repo: repo, activity: act})

	estimate, err := svc.CreateEstimate(context.Background(), CreateEstimateInput{
		LineItems: []dbtypes.LineItem{{Description: "Round pen panels", Quantity: 12}},
		Total:     decimal.NewFromInt(8400),
	})
	if err != nil {
		t.Fatalf("create estimate: %v", err)
	}
	if estimate.Status != enums.EstimateStatusDraft {
		t.Fatalf("expected draft, got %s", estimate.Status)
	}
	if estimate.ValidUntil == nil {
		t.Fatal("expected default valid_until")
	}
	days := time.Until(*estimate.ValidUntil).Hours() / 24
	if days < 29 || days > 31 {
		t.Fatalf("expected valid_until about 30 days out, got %.1f days", days)
	}
	if len(act.entries) != 1 || act.entries[0].Action != "created" {
		t.Fatalf("expected created activity entry, got %+v", act.entries)
	}
}

func TestCreateInvoiceDefaultsDueDateAndAmountDue(t *testing.T) {
	repo := &stubBillingRepo{}
	svc := newTestService(t, testDeps{repo: repo})

	total := decimal.NewFromFloat(12750.50)
	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{Total: total})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if invoice.Status != enums.InvoiceStatusDraft {
		t.Fatalf("expected draft, got %s", invoice.Status)
	}
	if !invoice.AmountDue.Equal(total) {
		t.Fatalf("expected amount due %s, got %s", total, invoice.AmountDue)
	}
	if !invoice.AmountPaid.IsZero() {
		t.Fatalf("expected zero amount paid, got %s", invoice.AmountPaid)
	}
	if invoice.DueDate == nil {
		t.Fatal("expected default due date")
	}
	days := time.Until(*invoice.DueDate).Hours() / 24
	if days < 29 || days > 31 {
		t.Fatalf("expected due date about 30 days out, got %.1f days", days)
	}
}

func TestMarkInvoicePaidCascadesToDeal(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), Stage: enums.DealStageInvoiceSent}
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2508-0042",
		DealID:        &deal.ID,
		Status:        enums.InvoiceStatusSent,
		Total:         decimal.NewFromInt(9200),
		AmountDue:     decimal.NewFromInt(9200),
	}
	repo := &stubBillingRepo{invoice: invoice}
	dealsStore := &stubDealStore{deal: deal}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{repo: repo, deals: dealsStore, activity: act})

	method := "check"
	result, err := svc.MarkInvoicePaid(context.Background(), invoice.ID, PaymentInput{Method: &method})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	paid := result.Invoice
	if paid.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if !paid.AmountPaid.Equal(invoice.Total) || !paid.AmountDue.IsZero() {
		t.Fatalf("expected amounts settled, got paid=%s due=%s", paid.AmountPaid, paid.AmountDue)
	}
	if paid.PaidAt == nil {
		t.Fatal("expected paid_at stamped")
	}
	if paid.PaymentMethod == nil || *paid.PaymentMethod != "check" {
		t.Fatalf("expected payment method recorded, got %v", paid.PaymentMethod)
	}
	if !result.DealUpdated {
		t.Fatal("expected deal update reported")
	}
	if deal.Stage != enums.DealStageInvoicePaid {
		t.Fatalf("expected deal moved to invoice_paid, got %s", deal.Stage)
	}

	if len(act.entries) != 1 || act.entries[0].Action != "invoice_paid" {
		t.Fatalf("expected invoice_paid entry, got %+v", act.entries)
	}
	if !strings.Contains(act.entries[0].Description, "INV-2508-0042 marked as paid - $9200.00") {
		t.Fatalf("unexpected description %q", act.entries[0].Description)
	}
	if len(act.notices) != 1 {
		t.Fatalf("expected one notification, got %d", len(act.notices))
	}
	notice := act.notices[0]
	if notice.Type != enums.NotificationTypePaymentReceived || notice.Priority != enums.NotificationPriorityHigh {
		t.Fatalf("expected high-priority payment_received, got %+v", notice)
	}
	if !strings.Contains(notice.Message, "Ready to place order with suppliers.") {
		t.Fatalf("unexpected message %q", notice.Message)
	}
	if notice.ActionURL == nil || *notice.ActionURL != "/deals/"+deal.ID.String() {
		t.Fatalf("unexpected action url %v", notice.ActionURL)
	}
}

func TestMarkInvoicePaidWithoutDealSkipsCascade(t *testing.T) {
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2508-0007",
		Status:        enums.InvoiceStatusDraft,
		Total:         decimal.NewFromInt(450),
		AmountDue:     decimal.NewFromInt(450),
	}
	repo := &stubBillingRepo{invoice: invoice}
	dealsStore := &stubDealStore{}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{repo: repo, deals: dealsStore, activity: act})

	result, err := svc.MarkInvoicePaid(context.Background(), invoice.ID, PaymentInput{})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if result.Invoice.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", result.Invoice.Status)
	}
	if result.DealUpdated {
		t.Fatal("expected no deal update")
	}
	if len(dealsStore.updated) != 0 {
		t.Fatalf("expected no deal writes, got %d", len(dealsStore.updated))
	}
	if len(act.entries) != 0 || len(act.notices) != 0 {
		t.Fatalf("expected no activity without a deal, got %d entries %d notices", len(act.entries), len(act.notices))
	}
}

func TestMarkInvoicePaidAlreadyPaidIsNoOp(t *testing.T) {
	paidAt := time.Now().UTC().Add(-time.Hour)
	dealID := uuid.New()
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2508-0011",
		DealID:        &dealID,
		Status:        enums.InvoiceStatusPaid,
		PaidAt:        &paidAt,
	}
	repo := &stubBillingRepo{invoice: invoice}
	act := &stubActivity{}
	svc := newTestService(t, testDeps{repo: repo, activity: act})

	result, err := svc.MarkInvoicePaid(context.Background(), invoice.ID, PaymentInput{})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if len(repo.updatedInvoices) != 0 {
		t.Fatalf("expected no write for paid invoice, got %d", len(repo.updatedInvoices))
	}
	if len(act.entries) != 0 || len(act.notices) != 0 {
		t.Fatalf("expected no activity for paid invoice")
	}
	if result.Invoice.PaidAt == nil || !result.Invoice.PaidAt.Equal(paidAt) {
		t.Fatalf("expected original paid_at preserved, got %v", result.Invoice.PaidAt)
	}
}

func TestMarkInvoicePaidNotFound(t *testing.T) {
	svc := newTestService(t, testDeps{})
	_, err := svc.MarkInvoicePaid(context.Background(), uuid.New(), PaymentInput{})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
