package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines task CRUD plus the stage-keyed generator.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	DueToday(ctx context.Context) ([]models.Task, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Task, error)
	Complete(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Snooze(ctx context.Context, id uuid.UUID, days int) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Generate(ctx context.Context, dealID uuid.UUID) (*GenerateResult, error)
	GenerateForDeal(ctx context.Context, dealID uuid.UUID) (int, error)
}

// DealSource is the slice of the deals repository the generator needs.
type DealSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
}

// ContactSource resolves contact names for title interpolation.
type ContactSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
}

type service struct {
	repo     Repository
	deals    DealSource
	contacts ContactSource
}

// CreateInput carries new-task fields.
type CreateInput struct {
	DealID      *uuid.UUID
	ContactID   *uuid.UUID
	Title       string
	Description *string
	Type        string
	Priority    string
	AssignedTo  *string
	DueDate     *time.Time
}

// UpdateInput mirrors CreateInput; nil leaves a field unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Type        *string
	Priority    *string
	Status      *string
	AssignedTo  *string
	DueDate     *time.Time
}

// ListParams filters the task list. Due takes "overdue", "today", or "week".
type ListParams struct {
	Status    string
	Priority  string
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Search    string
	Due       string
	Limit     int
	Cursor    string
}

// ListResult wraps returned tasks and the cursor for the next page.
type ListResult struct {
	Items  []models.Task `json:"items"`
	Cursor string        `json:"cursor"`
}

// GenerateResult reports the tasks the generator inserted. Templates whose
// title already exists as an open task on the deal are skipped, so Count can
// be smaller than the template list.
type GenerateResult struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

type taskTemplate struct {
	title      func(contactName string) string
	taskType   string
	offsetDays int
	priority   enums.TaskPriority
}

func plainTitle(title string) func(string) string {
	return func(string) string { return title }
}

// stageTemplates maps each pipeline stage to its follow-up playbook. Stages
// without an entry fall back to defaultTemplates.
var stageTemplates = map[enums.DealStage][]taskTemplate{
	enums.DealStageLead: {
		{title: func(name string) string { return fmt.Sprintf("Research %s's facility needs", name) }, taskType: "follow_up", offsetDays: 0, priority: enums.TaskPriorityHigh},
		{title: func(name string) string { return fmt.Sprintf("Initial contact call with %s", name) }, taskType: "call", offsetDays: 1, priority: enums.TaskPriorityHigh},
	},
	enums.DealStageQualified: {
		{title: plainTitle("Send product catalog and pricing overview"), taskType: "email", offsetDays: 1, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Schedule design consultation"), taskType: "meeting", offsetDays: 3, priority: enums.TaskPriorityHigh},
	},
	enums.DealStageProposalSent: {
		{title: plainTitle("Follow up on proposal"), taskType: "follow_up", offsetDays: 3, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Second follow up if no response"), taskType: "email", offsetDays: 7, priority: enums.TaskPriorityMedium},
	},
	enums.DealStageEstimateSent: {
		{title: plainTitle("Follow up on estimate acceptance"), taskType: "call", offsetDays: 2, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Confirm all items and pricing"), taskType: "follow_up", offsetDays: 5, priority: enums.TaskPriorityMedium},
	},
	enums.DealStageEstimateAccepted: {
		{title: plainTitle("Send invoice via QuickBooks"), taskType: "email", offsetDays: 0, priority: enums.TaskPriorityUrgent},
	},
	enums.DealStageInvoiceSent: {
		{title: plainTitle("Confirm invoice received"), taskType: "follow_up", offsetDays: 2, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Follow up on payment"), taskType: "call", offsetDays: 7, priority: enums.TaskPriorityHigh},
	},
	enums.DealStageInvoicePaid: {
		{title: plainTitle("Place order with supplier(s)"), taskType: "order_check", offsetDays: 0, priority: enums.TaskPriorityUrgent},
		{title: plainTitle("Request quotes from suppliers"), taskType: "quote_request", offsetDays: 0, priority: enums.TaskPriorityUrgent},
	},
	enums.DealStageOrderPlaced: {
		{title: plainTitle("Confirm order with supplier"), taskType: "order_check", offsetDays: 1, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Get tracking/shipping info"), taskType: "delivery_check", offsetDays: 3, priority: enums.TaskPriorityMedium},
	},
	enums.DealStageOrderConfirmed: {
		{title: plainTitle("Get updated ETA from supplier"), taskType: "order_check", offsetDays: 7, priority: enums.TaskPriorityMedium},
	},
	enums.DealStageShipping: {
		{title: plainTitle("Send tracking info to customer"), taskType: "email", offsetDays: 0, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Confirm delivery date"), taskType: "delivery_check", offsetDays: 2, priority: enums.TaskPriorityMedium},
	},
	enums.DealStageDelivered: {
		{title: plainTitle("Confirm delivery with customer"), taskType: "call", offsetDays: 0, priority: enums.TaskPriorityHigh},
		{title: plainTitle("Request review/referral"), taskType: "email", offsetDays: 3, priority: enums.TaskPriorityLow},
	},
}

var defaultTemplates = []taskTemplate{
	{title: func(name string) string { return fmt.Sprintf("Follow up with %s", name) }, taskType: "follow_up", offsetDays: 2, priority: enums.TaskPriorityMedium},
}

// NewService wires task dependencies.
func NewService(repo Repository, deals DealSource, contacts ContactSource) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tasks repository required")
	}
	if deals == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deal source required")
	}
	if contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact source required")
	}
	return &service{repo: repo, deals: deals, contacts: contacts}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title is required")
	}

	priority := enums.TaskPriorityMedium
	if input.Priority != "" {
		parsed, err := enums.ParseTaskPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task priority")
		}
		priority = parsed
	}
	taskType := input.Type
	if taskType == "" {
		taskType = "follow_up"
	}
	assignedTo := "team"
	if input.AssignedTo != nil && *input.AssignedTo != "" {
		assignedTo = *input.AssignedTo
	}

	task := models.Task{
		DealID:      input.DealID,
		ContactID:   input.ContactID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Type:        taskType,
		Priority:    priority,
		Status:      enums.TaskStatusPending,
		AssignedTo:  &assignedTo,
		DueDate:     input.DueDate,
	}
	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
	}
	return &task, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get task")
	}
	return task, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		DealID:    params.DealID,
		ContactID: params.ContactID,
		Search:    strings.TrimSpace(params.Search),
		Due:       params.Due,
		Limit:     params.Limit,
	}
	if params.Status != "" && params.Status != "all" {
		status, err := enums.ParseTaskStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Priority != "" {
		priority, err := enums.ParseTaskPriority(params.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority filter")
		}
		query.Priority = &priority
	}
	switch params.Due {
	case "", "overdue", "today", "week":
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due filter must be overdue, today, or week")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) DueToday(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.repo.DueToday(ctx, time.Now().UTC(), 20)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due tasks")
	}
	return tasks, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title is required")
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Type != nil {
		task.Type = *input.Type
	}
	if input.Priority != nil {
		priority, err := enums.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task priority")
		}
		task.Priority = priority
	}
	if input.Status != nil {
		status, err := enums.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task status")
		}
		task.Status = status
	}
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update task")
	}
	return task, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task.Status = enums.TaskStatusCompleted
	task.CompletedAt = &now
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete task")
	}
	return task, nil
}

// Snooze pushes the task out by the given number of days (default one) and
// moves both the due date and snoozed_until marker.
func (s *service) Snooze(ctx context.Context, id uuid.UUID, days int) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 1
	}

	until := time.Now().UTC().AddDate(0, 0, days)
	task.Status = enums.TaskStatusSnoozed
	task.SnoozedUntil = &until
	task.DueDate = &until
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snooze task")
	}
	return task, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete task")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	return nil
}

// Generate expands the deal's stage template into task rows. Dedup is on
// (deal_id, exact title) among non-completed tasks, so a second call for the
// same stage is a no-op.
func (s *service) Generate(ctx context.Context, dealID uuid.UUID) (*GenerateResult, error) {
	deal, err := s.deals.Get(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get deal")
	}

	templates, listed := stageTemplates[deal.Stage]
	contactName := "customer"
	if listed {
		contactName = "prospect"
	} else {
		templates = defaultTemplates
	}
	if deal.ContactID != nil {
		if contact, err := s.contacts.Get(ctx, *deal.ContactID); err == nil {
			if name := contact.FullName(); name != "" {
				contactName = name
			}
		}
	}

	today := time.Now().UTC()
	result := &GenerateResult{}
	for _, tpl := range templates {
		title := tpl.title(contactName)
		exists, err := s.repo.OpenTitleExists(ctx, dealID, title)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing task")
		}
		if exists {
			continue
		}

		due := today.AddDate(0, 0, tpl.offsetDays)
		task := models.Task{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			Title:       title,
			Type:        tpl.taskType,
			Priority:    tpl.priority,
			Status:      enums.TaskStatusPending,
			DueDate:     &due,
			AIGenerated: true,
		}
		if err := s.repo.Create(ctx, &task); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create generated task")
		}
		result.Tasks = append(result.Tasks, task)
		result.Count++
	}
	return result, nil
}

// GenerateForDeal is the narrow form other services depend on.
func (s *service) GenerateForDeal(ctx context.Context, dealID uuid.UUID) (int, error) {
	result, err := s.Generate(ctx, dealID)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}
