package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

type stubTasksRepo struct {
	task    *models.Task
	created []*models.Task
	updated []*models.Task
	open    map[string]bool
	deleted bool
}

func (s *stubTasksRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTasksRepo) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	s.created = append(s.created, task)
	return nil
}

func (s *stubTasksRepo) CreateTx(ctx context.Context, tx *gorm.DB, task *models.Task) error {
	return s.Create(ctx, task)
}

func (s *stubTasksRepo) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if s.task == nil || s.task.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.task
	return &copied, nil
}

func (s *stubTasksRepo) List(ctx context.Context, params listParams) ([]models.Task, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubTasksRepo) DueToday(ctx context.Context, now time.Time, limit int) ([]models.Task, error) {
	return nil, nil
}

func (s *stubTasksRepo) OpenTitleExists(ctx context.Context, dealID uuid.UUID, title string) (bool, error) {
	return s.open[title], nil
}

func (s *stubTasksRepo) Update(ctx context.Context, task *models.Task) error {
	s.updated = append(s.updated, task)
	return nil
}

func (s *stubTasksRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.deleted = true
	return s.task != nil && s.task.ID == id, nil
}

type stubDealSource struct {
	deal *models.Deal
}

func (s *stubDealSource) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	if s.deal == nil || s.deal.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.deal, nil
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

func newTestService(t *testing.T, repo *stubTasksRepo, deals *stubDealSource, contacts *stubContactSource) Service {
	t.Helper()
	svc, err := NewService(repo, deals, contacts)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestCreateDefaults(t *testing.T) {
	repo := &stubTasksRepo{}
	svc := newTestService(t, repo, &stubDealSource{}, &stubContactSource{})

	task, err := svc.Create(context.Background(), CreateInput{Title: " Call about stall mats "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "Call about stall mats" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.Type != "follow_up" || task.Priority != enums.TaskPriorityMedium {
		t.Fatalf("unexpected defaults type=%s priority=%s", task.Type, task.Priority)
	}
	if task.AssignedTo == nil || *task.AssignedTo != "team" {
		t.Fatalf("expected default assignee team, got %v", task.AssignedTo)
	}
	if task.Status != enums.TaskStatusPending {
		t.Fatalf("expected pending status, got %s", task.Status)
	}
}

func TestSnoozeDefaultsToOneDay(t *testing.T) {
	task := &models.Task{ID: uuid.New(), Title: "Check freight quote", Status: enums.TaskStatusPending}
	repo := &stubTasksRepo{task: task}
	svc := newTestService(t, repo, &stubDealSource{}, &stubContactSource{})

	snoozed, err := svc.Snooze(context.Background(), task.ID, 0)
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if snoozed.Status != enums.TaskStatusSnoozed {
		t.Fatalf("expected snoozed status, got %s", snoozed.Status)
	}
	if snoozed.SnoozedUntil == nil || snoozed.DueDate == nil {
		t.Fatal("expected snoozed_until and due_date set")
	}
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	if snoozed.SnoozedUntil.Before(tomorrow.Add(-time.Hour)) || snoozed.SnoozedUntil.After(tomorrow.Add(time.Hour)) {
		t.Fatalf("expected snooze about one day out, got %s", snoozed.SnoozedUntil)
	}
}

func TestGenerateUsesStageTemplates(t *testing.T) {
	contact := &models.Contact{ID: uuid.New(), FirstName: "Dana", LastName: "Wells"}
	deal := &models.Deal{ID: uuid.New(), ContactID: &contact.ID, Stage: enums.DealStageLead}
	repo := &stubTasksRepo{}
	svc := newTestService(t, repo, &stubDealSource{deal: deal}, &stubContactSource{contact: contact})

	result, err := svc.Generate(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 tasks for lead stage, got %d", result.Count)
	}
	if result.Tasks[0].Title != "Research Dana Wells's facility needs" {
		t.Fatalf("unexpected first title %q", result.Tasks[0].Title)
	}
	if result.Tasks[1].Title != "Initial contact call with Dana Wells" {
		t.Fatalf("unexpected second title %q", result.Tasks[1].Title)
	}
	for _, task := range result.Tasks {
		if !task.AIGenerated {
			t.Fatalf("expected ai_generated on %q", task.Title)
		}
		if task.Priority != enums.TaskPriorityHigh {
			t.Fatalf("expected high priority on %q, got %s", task.Title, task.Priority)
		}
	}
}

func TestGenerateFallsBackToDefaultTemplate(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), Stage: enums.DealStageOnHold}
	repo := &stubTasksRepo{}
	svc := newTestService(t, repo, &stubDealSource{deal: deal}, &stubContactSource{})

	result, err := svc.Generate(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 default task, got %d", result.Count)
	}
	if result.Tasks[0].Title != "Follow up with customer" {
		t.Fatalf("unexpected title %q", result.Tasks[0].Title)
	}
	if result.Tasks[0].Priority != enums.TaskPriorityMedium {
		t.Fatalf("unexpected priority %s", result.Tasks[0].Priority)
	}
}

func TestGenerateUsesProspectForEarlyStagesWithoutContact(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), Stage: enums.DealStageLead}
	repo := &stubTasksRepo{}
	svc := newTestService(t, repo, &stubDealSource{deal: deal}, &stubContactSource{})

	result, err := svc.Generate(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Tasks[0].Title != "Research prospect's facility needs" {
		t.Fatalf("unexpected title %q", result.Tasks[0].Title)
	}
}

func TestGenerateSkipsExistingOpenTitles(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), Stage: enums.DealStageQualified}
	repo := &stubTasksRepo{open: map[string]bool{
		"Send product catalog and pricing overview": true,
	}}
	svc := newTestService(t, repo, &stubDealSource{deal: deal}, &stubContactSource{})

	result, err := svc.Generate(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 new task after dedup, got %d", result.Count)
	}
	if result.Tasks[0].Title != "Schedule design consultation" {
		t.Fatalf("unexpected title %q", result.Tasks[0].Title)
	}
}

func TestGenerateUnknownDeal(t *testing.T) {
	svc := newTestService(t, &stubTasksRepo{}, &stubDealSource{}, &stubContactSource{})
	_, err := svc.Generate(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompleteStampsCompletedAt(t *testing.T) {
	task := &models.Task{ID: uuid.New(), Title: "Send invoice", Status: enums.TaskStatusPending}
	repo := &stubTasksRepo{task: task}
	svc := newTestService(t, repo, &stubDealSource{}, &stubContactSource{})

	done, err := svc.Complete(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != enums.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected CompletedAt set")
	}
}
