package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/amberwayequine/crm-backend/internal/deals"
	"github.com/amberwayequine/crm-backend/pkg/logger"
)

func TestStaleDealJobSweepsWithConfiguredDays(t *testing.T) {
	sweeper := &fakeSweeper{result: &deals.StaleSweepResult{Closed: 3}}
	job := newStaleDealJob(t, sweeper, 45)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.lastDays != 45 {
		t.Fatalf("expected sweep with 45 days, got %d", sweeper.lastDays)
	}
	if sweeper.called != 1 {
		t.Fatalf("expected sweeper called once, got %d", sweeper.called)
	}
}

func TestStaleDealJobDefaultsTo60Days(t *testing.T) {
	sweeper := &fakeSweeper{result: &deals.StaleSweepResult{}}
	job := newStaleDealJob(t, sweeper, 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.lastDays != staleDealDefaultDays {
		t.Fatalf("expected default days %d, got %d", staleDealDefaultDays, sweeper.lastDays)
	}
}

func TestStaleDealJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("boom")}
	job := newStaleDealJob(t, sweeper, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newStaleDealJob(t *testing.T, sweeper *fakeSweeper, days int) Job {
	t.Helper()
	job, err := NewStaleDealJob(StaleDealJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Deals:  sweeper,
		Days:   days,
	})
	if err != nil {
		t.Fatalf("NewStaleDealJob: %v", err)
	}
	return job
}

type fakeSweeper struct {
	result   *deals.StaleSweepResult
	err      error
	lastDays int
	called   int
}

func (f *fakeSweeper) StaleSweep(ctx context.Context, olderThanDays int) (*deals.StaleSweepResult, error) {
	f.called++
	f.lastDays = olderThanDays
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
