package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines activity-log and notification operations.
type Service interface {
	Log(ctx context.Context, tx *gorm.DB, entry Entry) error
	Notify(ctx context.Context, tx *gorm.DB, notice Notice) error
	ListActivity(ctx context.Context, params ListActivityParams) (*ActivityList, error)
	ListNotifications(ctx context.Context, params ListNotificationsParams) (*NotificationList, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
}

// Entry is one append-only activity record.
type Entry struct {
	DealID      *uuid.UUID
	ContactID   *uuid.UUID
	EntityType  enums.EntityType
	EntityID    *uuid.UUID
	Action      string
	Description string
	OldValue    *string
	NewValue    *string
	PerformedBy string
}

// Notice is one in-app notification payload.
type Notice struct {
	Type       enums.NotificationType
	Title      string
	Message    string
	EntityType enums.EntityType
	EntityID   *uuid.UUID
	Priority   enums.NotificationPriority
	ActionURL  *string
}

// ListActivityParams filters the activity feed by deal or contact.
type ListActivityParams struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	Limit     int
	Cursor    string
}

// ActivityList wraps returned entries and the cursor for the next page.
type ActivityList struct {
	Items  []models.ActivityLog `json:"items"`
	Cursor string               `json:"cursor"`
}

// ListNotificationsParams configures pagination for notifications.
type ListNotificationsParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NotificationList wraps returned notifications and the cursor for the next page.
type NotificationList struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires activity dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity repository required")
	}
	return &service{repo: repo}, nil
}

// Log appends one activity record. Pass the surrounding transaction so the
// entry commits or rolls back with the transition that produced it; pass nil
// for a standalone write.
func (s *service) Log(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if !entry.EntityType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown entity type")
	}
	if entry.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}

	performedBy := entry.PerformedBy
	if performedBy == "" {
		performedBy = "system"
	}

	record := models.ActivityLog{
		DealID:      entry.DealID,
		ContactID:   entry.ContactID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		Description: entry.Description,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		PerformedBy: performedBy,
	}
	if err := s.repo.WithTx(tx).CreateActivity(ctx, &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create activity entry")
	}
	return nil
}

// Notify appends one notification, joining the caller's transaction when
// provided.
func (s *service) Notify(ctx context.Context, tx *gorm.DB, notice Notice) error {
	if !notice.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if notice.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	priority := notice.Priority
	if priority == "" {
		priority = enums.NotificationPriorityNormal
	}
	if !priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification priority")
	}

	record := models.Notification{
		Type:      notice.Type,
		Title:     notice.Title,
		Message:   notice.Message,
		Priority:  priority,
		ActionURL: notice.ActionURL,
		EntityID:  notice.EntityID,
	}
	if notice.EntityType != "" {
		entityType := notice.EntityType
		record.EntityType = &entityType
	}
	if err := s.repo.WithTx(tx).CreateNotification(ctx, &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

func (s *service) ListActivity(ctx context.Context, params ListActivityParams) (*ActivityList, error) {
	query := listActivityParams{
		DealID:    params.DealID,
		ContactID: params.ContactID,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListActivity(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ActivityList{Items: rows, Cursor: cursor}, nil
}

func (s *service) ListNotifications(ctx context.Context, params ListNotificationsParams) (*NotificationList, error) {
	query := listNotificationsParams{
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListNotifications(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &NotificationList{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
