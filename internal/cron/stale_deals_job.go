package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/amberwayequine/crm-backend/internal/deals"
	"github.com/amberwayequine/crm-backend/pkg/logger"
)

const staleDealDefaultDays = 60

// StaleDealJobParams configure the stale deal sweep.
type StaleDealJobParams struct {
	Logger *logger.Logger
	Deals  staleDealSweeper
	Days   int
}

type staleDealSweeper interface {
	StaleSweep(ctx context.Context, olderThanDays int) (*deals.StaleSweepResult, error)
}

// NewStaleDealJob builds the job that closes deals left in estimate_sent
// past the cutoff.
func NewStaleDealJob(params StaleDealJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deals == nil {
		return nil, fmt.Errorf("deals service required")
	}
	days := params.Days
	if days <= 0 {
		days = staleDealDefaultDays
	}
	return &staleDealJob{
		logg:  params.Logger,
		deals: params.Deals,
		days:  days,
	}, nil
}

type staleDealJob struct {
	logg  *logger.Logger
	deals staleDealSweeper
	days  int
}

func (j *staleDealJob) Name() string { return "stale-deal-sweep" }

func (j *staleDealJob) Run(ctx context.Context) error {
	start := time.Now()
	result, err := j.deals.StaleSweep(ctx, j.days)
	if err != nil {
		return fmt.Errorf("stale deal sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale_days":   j.days,
		"deals_closed": result.Closed,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	j.logg.Info(logCtx, "stale deal sweep complete")
	return nil
}
