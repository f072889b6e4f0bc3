// Package jobs runs the periodic maintenance sweeps on a cron schedule.
// Every tick takes a single time snapshot shared by all sweeps it invokes so
// their expiry decisions are consistent.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/edulog/edulog/internal/logging"
)

// TokenSweeps is the token authority surface the scheduler drives.
type TokenSweeps interface {
	DeleteExpiredAccounts(ctx context.Context, now time.Time) error
	ReactivateUserAccounts(ctx context.Context, now time.Time) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// AccountSweeps deactivates long-idle participant accounts.
type AccountSweeps interface {
	DeactivateOldParticipantAccounts(ctx context.Context, now time.Time) error
}

// ExperimentSweeps deactivates experiments without recent participant activity.
type ExperimentSweeps interface {
	DeactivateInactiveExperiments(ctx context.Context, now time.Time) error
}

// CourseSweeps deactivates courses whose experiments have all gone inactive.
type CourseSweeps interface {
	DeactivateInactiveCourses(ctx context.Context, now time.Time) error
}

// Scheduler wires the sweeps into a cron runner.
type Scheduler struct {
	cron           *cron.Cron
	logger         logging.Logger
	tokens         TokenSweeps
	accounts       AccountSweeps
	experiments    ExperimentSweeps
	courses        CourseSweeps
	tokenSpec      string
	deactivateSpec string
	now            func() time.Time
}

// NewScheduler constructs a Scheduler with the given sweep targets and cron
// specs.
func NewScheduler(tokens TokenSweeps, accounts AccountSweeps, experiments ExperimentSweeps,
	courses CourseSweeps, logger logging.Logger, tokenSpec, deactivateSpec string) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		logger:         logger,
		tokens:         tokens,
		accounts:       accounts,
		experiments:    experiments,
		courses:        courses,
		tokenSpec:      tokenSpec,
		deactivateSpec: deactivateSpec,
		now:            time.Now,
	}
}

// Start registers the sweep jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.tokenSpec, s.tokenTick); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.deactivateSpec, s.deactivationTick); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron runner and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tokenTick() {
	ctx := context.Background()
	now := s.now()

	s.logger.Info(ctx, "starting token sweep")
	if err := s.tokens.DeleteExpiredAccounts(ctx, now); err != nil {
		s.logger.Error(ctx, "expired account sweep failed", "error", err.Error())
	}
	if err := s.tokens.ReactivateUserAccounts(ctx, now); err != nil {
		s.logger.Error(ctx, "account reactivation sweep failed", "error", err.Error())
	}
	if err := s.tokens.DeleteExpiredTokens(ctx, now); err != nil {
		s.logger.Error(ctx, "token expiry sweep failed", "error", err.Error())
	}
}

func (s *Scheduler) deactivationTick() {
	ctx := context.Background()
	now := s.now()

	s.logger.Info(ctx, "starting deactivation sweep")
	if err := s.accounts.DeactivateOldParticipantAccounts(ctx, now); err != nil {
		s.logger.Error(ctx, "participant account sweep failed", "error", err.Error())
	}
	if err := s.experiments.DeactivateInactiveExperiments(ctx, now); err != nil {
		s.logger.Error(ctx, "experiment inactivity sweep failed", "error", err.Error())
	}
	if err := s.courses.DeactivateInactiveCourses(ctx, now); err != nil {
		s.logger.Error(ctx, "course inactivity sweep failed", "error", err.Error())
	}
}
