package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Repository exposes persistence helpers for tasks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.Task) error
	CreateTx(ctx context.Context, tx *gorm.DB, task *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, params listParams) ([]models.Task, *pagination.Cursor, error)
	DueToday(ctx context.Context, now time.Time, limit int) ([]models.Task, error)
	OpenTitleExists(ctx context.Context, dealID uuid.UUID, title string) (bool, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a tasks repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Status    *enums.TaskStatus
	Priority  *enums.TaskPriority
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Search    string
	Due       string
	Limit     int
	Cursor    *pagination.Cursor
}

// priorityRank orders urgent ahead of high ahead of medium ahead of low.
const priorityRank = "CASE priority WHEN 'urgent' THEN 1 WHEN 'high' THEN 2 WHEN 'medium' THEN 3 ELSE 4 END"

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Task, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Task{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}
	if params.DealID != nil {
		query = query.Where("deal_id = ?", *params.DealID)
	}
	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}
	switch params.Due {
	case "overdue":
		query = query.Where("due_date < ? AND status <> ?", startOfDay(time.Now().UTC()), enums.TaskStatusCompleted)
	case "today":
		day := startOfDay(time.Now().UTC())
		query = query.Where("due_date >= ? AND due_date < ?", day, day.AddDate(0, 0, 1))
	case "week":
		query = query.Where("due_date < ? AND status <> ?", startOfDay(time.Now().UTC()).AddDate(0, 0, 8), enums.TaskStatusCompleted)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var tasks []models.Task
	err := query.
		Order(priorityRank + ", due_date ASC NULLS LAST, created_at DESC, id DESC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, nil, err
	}

	if len(tasks) > normalized {
		next := tasks[normalized]
		tasks = tasks[:normalized]
		return tasks, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return tasks, nil, nil
}

func (r *repositoryImpl) DueToday(ctx context.Context, now time.Time, limit int) ([]models.Task, error) {
	endOfDay := startOfDay(now).AddDate(0, 0, 1)
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", []enums.TaskStatus{enums.TaskStatusPending, enums.TaskStatusInProgress}, endOfDay).
		Order(priorityRank + ", due_date ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repositoryImpl) OpenTitleExists(ctx context.Context, dealID uuid.UUID, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("deal_id = ? AND title = ? AND status <> ?", dealID, title, enums.TaskStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateTx writes inside another service's transaction. A nil tx writes
// standalone.
func (r *repositoryImpl) CreateTx(ctx context.Context, tx *gorm.DB, task *models.Task) error {
	return r.WithTx(tx).Create(ctx, task)
}

func (r *repositoryImpl) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
