package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/pkg/db/models"
	"github.com/amberwayequine/crm-backend/pkg/enums"
	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/pagination"
)

// Service defines deal pipeline operations. Stage moves, wins, losses, and
// the stale sweep each run their writes inside a single transaction so a
// failed side effect rolls the whole transition back.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Pipeline(ctx context.Context) (*PipelineResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Deal, error)
	MoveStage(ctx context.Context, id uuid.UUID, stage string) (*MoveStageResult, error)
	MarkWon(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	MarkLost(ctx context.Context, id uuid.UUID, reason string) (*models.Deal, error)
	Archive(ctx context.Context, id uuid.UUID) error
	StalePreview(ctx context.Context, olderThanDays int) ([]models.Deal, error)
	StaleSweep(ctx context.Context, olderThanDays int) (*StaleSweepResult, error)
}

// TaskGenerator produces stage-appropriate follow-up tasks for a deal.
// Implemented by the tasks service; declared here to keep the dependency
// one-way.
type TaskGenerator interface {
	GenerateForDeal(ctx context.Context, dealID uuid.UUID) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// noteStore writes communication rows inside another service's transaction.
// Satisfied by the communications repository.
type noteStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, comm *models.Communication) error
}

type service struct {
	tx       txRunner
	repo     Repository
	activity activity.Service
	comms    noteStore
	taskgen  TaskGenerator
	logg     *logger.Logger
}

// CreateInput carries new-deal fields.
type CreateInput struct {
	Title             string
	ContactID         *uuid.UUID
	Stage             string
	Priority          string
	Value             decimal.Decimal
	Probability       int
	ProductCategories []string
	Notes             *string
	ExpectedCloseDate *time.Time
}

// CreateResult returns the new deal plus how many tasks were generated for
// its opening stage.
type CreateResult struct {
	Deal         *models.Deal `json:"deal"`
	TasksCreated int          `json:"tasks_created"`
}

// UpdateInput mirrors CreateInput; nil leaves a field unchanged. Stage and
// status moves go through their dedicated operations, not Update.
type UpdateInput struct {
	Title             *string
	ContactID         *uuid.UUID
	Priority          *string
	Value             *decimal.Decimal
	Probability       *int
	ProductCategories []string
	Notes             *string
	ExpectedCloseDate *time.Time
}

// ListParams filters the deal list.
type ListParams struct {
	Stage     string
	Status    string
	ContactID *uuid.UUID
	Search    string
	Limit     int
	Cursor    string
}

// ListResult wraps returned deals and the cursor for the next page.
type ListResult struct {
	Items  []models.Deal `json:"items"`
	Cursor string        `json:"cursor"`
}

// PipelineStage summarizes the active deals sitting in one stage.
type PipelineStage struct {
	Stage enums.DealStage `json:"stage"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
	Deals []models.Deal   `json:"deals"`
}

// PipelineResult is the kanban view: every stage in board order, including
// empty ones.
type PipelineResult struct {
	Stages     []PipelineStage `json:"stages"`
	TotalCount int             `json:"total_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// MoveStageResult reports the stage move. TasksCreated is always zero here;
// stage-based task generation only runs on deal creation or an explicit
// generate call.
type MoveStageResult struct {
	Deal         *models.Deal `json:"deal"`
	TasksCreated int          `json:"tasks_created"`
}

// StaleSweepResult reports which deals the sweep closed.
type StaleSweepResult struct {
	Closed  int         `json:"closed"`
	DealIDs []uuid.UUID `json:"deal_ids"`
}

// boardOrder fixes the pipeline display order. Terminal-ish stages come last.
var boardOrder = []enums.DealStage{
	enums.DealStageLead,
	enums.DealStageQualified,
	enums.DealStageProposalSent,
	enums.DealStageEstimateSent,
	enums.DealStageEstimateAccepted,
	enums.DealStageInvoiceSent,
	enums.DealStageInvoicePaid,
	enums.DealStageOrderPlaced,
	enums.DealStageOrderConfirmed,
	enums.DealStageShipping,
	enums.DealStageDelivered,
	enums.DealStageCompleted,
	enums.DealStageOnHold,
	enums.DealStageLost,
}

// NewService wires deal dependencies.
func NewService(client txRunner, repo Repository, activitySvc activity.Service, commsRepo noteStore, taskgen TaskGenerator, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deals repository required")
	}
	if activitySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity service required")
	}
	if commsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications repository required")
	}
	if taskgen == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "task generator required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		tx:       client,
		repo:     repo,
		activity: activitySvc,
		comms:    commsRepo,
		taskgen:  taskgen,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal title is required")
	}

	stage := enums.DealStageLead
	if input.Stage != "" {
		parsed, err := enums.ParseDealStage(input.Stage)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deal stage")
		}
		stage = parsed
	}
	priority := enums.TaskPriorityMedium
	if input.Priority != "" {
		parsed, err := enums.ParseTaskPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deal priority")
		}
		priority = parsed
	}
	if input.Probability < 0 || input.Probability > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "probability must be between 0 and 100")
	}

	deal := models.Deal{
		Title:             strings.TrimSpace(input.Title),
		ContactID:         input.ContactID,
		Stage:             stage,
		Status:            enums.DealStatusActive,
		Priority:          priority,
		Value:             input.Value,
		Probability:       input.Probability,
		ProductCategories: pq.StringArray(input.ProductCategories),
		Notes:             input.Notes,
		ExpectedCloseDate: input.ExpectedCloseDate,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deal")
		}
		entry := activity.Entry{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			EntityType:  enums.EntityTypeDeal,
			EntityID:    &deal.ID,
			Action:      "created",
			Description: fmt.Sprintf("Deal %q created in stage %s", deal.Title, deal.Stage),
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	tasksCreated, genErr := s.taskgen.GenerateForDeal(ctx, deal.ID)
	if genErr != nil {
		s.logg.Error(s.logg.WithDealID(ctx, deal.ID.String()), "generate tasks for new deal", genErr)
	}

	return &CreateResult{Deal: &deal, TasksCreated: tasksCreated}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return s.get(ctx, s.repo, id)
}

func (s *service) get(ctx context.Context, repo Repository, id uuid.UUID) (*models.Deal, error) {
	deal, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get deal")
	}
	return deal, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		ContactID: params.ContactID,
		Search:    strings.TrimSpace(params.Search),
		Limit:     params.Limit,
	}
	if params.Stage != "" {
		stage, err := enums.ParseDealStage(params.Stage)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage filter")
		}
		query.Stage = &stage
	}
	if params.Status != "" {
		status, err := enums.ParseDealStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Pipeline(ctx context.Context) (*PipelineResult, error) {
	deals, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active deals")
	}

	byStage := make(map[enums.DealStage][]models.Deal, len(boardOrder))
	for _, deal := range deals {
		byStage[deal.Stage] = append(byStage[deal.Stage], deal)
	}

	result := &PipelineResult{TotalValue: decimal.Zero}
	for _, stage := range boardOrder {
		stageDeals := byStage[stage]
		value := decimal.Zero
		for _, deal := range stageDeals {
			value = value.Add(deal.Value)
		}
		result.Stages = append(result.Stages, PipelineStage{
			Stage: stage,
			Count: len(stageDeals),
			Value: value,
			Deals: stageDeals,
		})
		result.TotalCount += len(stageDeals)
		result.TotalValue = result.TotalValue.Add(value)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Deal, error) {
	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal title is required")
		}
		deal.Title = strings.TrimSpace(*input.Title)
	}
	if input.ContactID != nil {
		deal.ContactID = input.ContactID
	}
	if input.Priority != nil {
		priority, err := enums.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deal priority")
		}
		deal.Priority = priority
	}
	if input.Value != nil {
		deal.Value = *input.Value
	}
	if input.Probability != nil {
		if *input.Probability < 0 || *input.Probability > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "probability must be between 0 and 100")
		}
		deal.Probability = *input.Probability
	}
	if input.ProductCategories != nil {
		deal.ProductCategories = pq.StringArray(input.ProductCategories)
	}
	if input.Notes != nil {
		deal.Notes = input.Notes
	}
	if input.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = input.ExpectedCloseDate
	}

	if err := s.repo.Update(ctx, deal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal")
	}
	return deal, nil
}

func (s *service) MoveStage(ctx context.Context, id uuid.UUID, stage string) (*MoveStageResult, error) {
	newStage, err := enums.ParseDealStage(stage)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deal stage")
	}

	var deal *models.Deal
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var txErr error
		deal, txErr = s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		oldStage := deal.Stage
		if oldStage == newStage {
			return nil
		}

		deal.Stage = newStage
		if err := repo.Update(ctx, deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal stage")
		}

		oldVal := string(oldStage)
		newVal := string(newStage)
		entry := activity.Entry{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			EntityType:  enums.EntityTypeDeal,
			EntityID:    &deal.ID,
			Action:      "stage_changed",
			Description: fmt.Sprintf("Deal %q moved from %s to %s", deal.Title, oldStage, newStage),
			OldValue:    &oldVal,
			NewValue:    &newVal,
		}
		if err := s.activity.Log(ctx, tx, entry); err != nil {
			return err
		}

		note := fmt.Sprintf("Stage changed: %s -> %s", oldStage, newStage)
		if err := s.logDealNote(ctx, tx, deal, note); err != nil {
			return err
		}

		notice := activity.Notice{
			Type:       enums.NotificationTypeDealUpdate,
			Title:      "Deal stage updated",
			Message:    fmt.Sprintf("%s is now in %s", deal.Title, newStage),
			EntityType: enums.EntityTypeDeal,
			EntityID:   &deal.ID,
			Priority:   enums.NotificationPriorityNormal,
		}
		return s.activity.Notify(ctx, tx, notice)
	})
	if err != nil {
		return nil, err
	}

	return &MoveStageResult{Deal: deal, TasksCreated: 0}, nil
}

func (s *service) MarkWon(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal *models.Deal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var txErr error
		deal, txErr = s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		now := time.Now().UTC()
		deal.Status = enums.DealStatusWon
		deal.Stage = enums.DealStageCompleted
		deal.ClosedAt = &now
		if err := repo.Update(ctx, deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark deal won")
		}

		entry := activity.Entry{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			EntityType:  enums.EntityTypeDeal,
			EntityID:    &deal.ID,
			Action:      "won",
			Description: fmt.Sprintf("Deal %q marked as won", deal.Title),
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) MarkLost(ctx context.Context, id uuid.UUID, reason string) (*models.Deal, error) {
	var deal *models.Deal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var txErr error
		deal, txErr = s.get(ctx, repo, id)
		if txErr != nil {
			return txErr
		}

		deal.Status = enums.DealStatusLost
		deal.Stage = enums.DealStageLost
		if strings.TrimSpace(reason) != "" {
			trimmed := strings.TrimSpace(reason)
			deal.LostReason = &trimmed
		}
		if err := repo.Update(ctx, deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark deal lost")
		}

		entry := activity.Entry{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			EntityType:  enums.EntityTypeDeal,
			EntityID:    &deal.ID,
			Action:      "lost",
			Description: fmt.Sprintf("Deal %q marked as lost", deal.Title),
			NewValue:    deal.LostReason,
		}
		return s.activity.Log(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deal, err := s.get(ctx, repo, id)
		if err != nil {
			return err
		}

		deal.Status = enums.DealStatusArchived
		if err := repo.Update(ctx, deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive deal")
		}

		entry := activity.Entry{
			DealID:      &deal.ID,
			ContactID:   deal.ContactID,
			EntityType:  enums.EntityTypeDeal,
			EntityID:    &deal.ID,
			Action:      "archived",
			Description: fmt.Sprintf("Deal %q archived", deal.Title),
		}
		return s.activity.Log(ctx, tx, entry)
	})
}

func (s *service) StalePreview(ctx context.Context, olderThanDays int) ([]models.Deal, error) {
	cutoff := staleCutoff(olderThanDays)
	deals, err := s.repo.ListStale(ctx, enums.DealStageEstimateSent, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale deals")
	}
	return deals, nil
}

// StaleSweep closes active deals that have sat in estimate_sent past the
// cutoff. Each deal gets its own transaction so one bad row cannot block
// the rest of the sweep.
func (s *service) StaleSweep(ctx context.Context, olderThanDays int) (*StaleSweepResult, error) {
	stale, err := s.StalePreview(ctx, olderThanDays)
	if err != nil {
		return nil, err
	}

	days := normalizeStaleDays(olderThanDays)
	result := &StaleSweepResult{}
	for i := range stale {
		deal := stale[i]
		sweepErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			reason := fmt.Sprintf("Automatically closed: no response after %d days with estimate sent", days)
			deal.Status = enums.DealStatusLost
			deal.Stage = enums.DealStageLost
			deal.LostReason = &reason
			if err := repo.Update(ctx, &deal); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close stale deal")
			}

			entry := activity.Entry{
				DealID:      &deal.ID,
				ContactID:   deal.ContactID,
				EntityType:  enums.EntityTypeDeal,
				EntityID:    &deal.ID,
				Action:      "stale_closed",
				Description: fmt.Sprintf("Deal %q closed by stale sweep", deal.Title),
				NewValue:    &reason,
			}
			if err := s.activity.Log(ctx, tx, entry); err != nil {
				return err
			}

			if err := s.logDealNote(ctx, tx, &deal, reason); err != nil {
				return err
			}

			notice := activity.Notice{
				Type:       enums.NotificationTypeStaleDeal,
				Title:      "Stale deal closed",
				Message:    fmt.Sprintf("%s was marked lost after %d days without a response", deal.Title, days),
				EntityType: enums.EntityTypeDeal,
				EntityID:   &deal.ID,
				Priority:   enums.NotificationPriorityHigh,
			}
			return s.activity.Notify(ctx, tx, notice)
		})
		if sweepErr != nil {
			s.logg.Error(s.logg.WithDealID(ctx, deal.ID.String()), "stale sweep failed for deal", sweepErr)
			continue
		}
		result.Closed++
		result.DealIDs = append(result.DealIDs, deal.ID)
	}
	return result, nil
}

func (s *service) logDealNote(ctx context.Context, tx *gorm.DB, deal *models.Deal, note string) error {
	comm := models.Communication{
		DealID:    &deal.ID,
		ContactID: deal.ContactID,
		Type:      enums.CommunicationTypeNote,
		Direction: enums.CommunicationDirectionInternal,
		Body:      &note,
		Status:    enums.CommunicationStatusLogged,
	}
	if err := s.comms.CreateTx(ctx, tx, &comm); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log deal note")
	}
	return nil
}

func staleCutoff(olderThanDays int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -normalizeStaleDays(olderThanDays))
}

func normalizeStaleDays(olderThanDays int) int {
	if olderThanDays <= 0 {
		return 60
	}
	return olderThanDays
}
