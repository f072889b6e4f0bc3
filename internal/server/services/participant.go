// Package services contains the lifecycle engine's business logic. This file
// implements ParticipantService, the single orchestration layer for
// enrollment, participant verification, course propagation, and the
// deactivation rules spanning users, experiments, and courses.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/config"
	"github.com/edulog/edulog/internal/server/models"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
)

// ParticipantService owns all writes to the participation ledger and the
// cross-entity invariants around them. Every entry point validates ids
// before touching the store and runs multi-row work inside one transaction.
type ParticipantService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	cfg         *config.Config
}

// NewParticipantService constructs a ParticipantService using repositories
// and server config.
func NewParticipantService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *ParticipantService {
	return &ParticipantService{db: db, repomanager: m, logger: logger, cfg: cfg}
}

func validateID(kind string, id int64) error {
	if id < common.MinID {
		return fmt.Errorf("%w: invalid %s id %d", common.ErrInvalidInput, kind, id)
	}
	return nil
}

// GetParticipant returns the enrollment for the given user and experiment.
// The user and experiment must exist; their absence short-circuits before
// the participant lookup.
func (s *ParticipantService) GetParticipant(ctx context.Context, userID, experimentID int64) (*models.Participant, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	if err := validateID("experiment", experimentID); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("searching user %d: %w", userID, err)
	}
	if _, err := s.repomanager.Experiments(s.db).FindByID(ctx, experimentID); err != nil {
		return nil, fmt.Errorf("searching experiment %d: %w", experimentID, err)
	}

	participant, err := s.repomanager.Participants(s.db).Find(ctx, userID, experimentID)
	if err != nil {
		return nil, fmt.Errorf("searching participant entry for user %d and experiment %d: %w",
			userID, experimentID, err)
	}

	return participant, nil
}

// AddParticipant enrolls the user in the experiment with unset start and end
// times. User and experiment state is not touched.
func (s *ParticipantService) AddParticipant(ctx context.Context, userID, experimentID int64) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	if err := validateID("experiment", experimentID); err != nil {
		return err
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, userID); err != nil {
		return fmt.Errorf("searching user %d: %w", userID, err)
	}
	if _, err := s.repomanager.Experiments(s.db).FindByID(ctx, experimentID); err != nil {
		return fmt.Errorf("searching experiment %d: %w", experimentID, err)
	}

	participant := &models.Participant{UserID: userID, ExperimentID: experimentID}
	if err := s.repomanager.Participants(s.db).Create(ctx, participant); err != nil {
		return fmt.Errorf("creating participant entry for user %d and experiment %d: %w",
			userID, experimentID, err)
	}

	return nil
}

// AddCourseParticipants enrolls every member of the course into the
// experiment. Both course and experiment must be active and linked;
// violations are state errors, distinct from missing referents. The
// precondition checks run in the same transaction as the batch so the state
// they observe cannot change before the enrollments land. Per-row
// constraint failures (a member already enrolled) are logged and skipped so
// the rest of the batch proceeds. Members whose account has no secret are
// given a fresh one and activated the first time they are pulled in.
func (s *ParticipantService) AddCourseParticipants(ctx context.Context, experimentID, courseID int64) error {
	if err := validateID("experiment", experimentID); err != nil {
		return err
	}
	if err := validateID("course", courseID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		course, err := s.repomanager.Courses(tx).FindByID(ctx, courseID)
		if err != nil {
			return fmt.Errorf("searching course %d: %w", courseID, err)
		}
		experiment, err := s.repomanager.Experiments(tx).FindByID(ctx, experimentID)
		if err != nil {
			return fmt.Errorf("searching experiment %d: %w", experimentID, err)
		}

		if !course.Active() || !experiment.Active() {
			return fmt.Errorf("%w: cannot add participants to inactive course or experiment", common.ErrInvalidState)
		}
		linked, err := s.repomanager.Courses(tx).LinkExists(ctx, courseID, experimentID)
		if err != nil {
			return err
		}
		if !linked {
			return fmt.Errorf("%w: experiment %d is not part of course %d", common.ErrInvalidState,
				experimentID, courseID)
		}

		members, err := s.repomanager.Courses(tx).FindParticipantsByCourse(ctx, courseID)
		if err != nil {
			return err
		}

		for _, member := range members {
			participant := &models.Participant{UserID: member.UserID, ExperimentID: experimentID}
			if err := s.repomanager.Participants(tx).Create(ctx, participant); err != nil {
				if errors.Is(err, common.ErrConstraint) {
					s.logger.Warn(ctx, "skipping course member during propagation",
						"user", member.UserID, "experiment", experimentID, "error", err.Error())
					continue
				}
				return err
			}

			if err := s.activateCourseMember(ctx, tx, member.UserID); err != nil {
				return err
			}
		}

		return nil
	})
}

// activateCourseMember gives the user a fresh secret and an active account
// if they have no secret yet.
func (s *ParticipantService) activateCourseMember(ctx context.Context, tx dbx.DBTX, userID int64) error {
	user, err := s.repomanager.Users(tx).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: no user entry for course member %d", common.ErrCorrupt, userID)
		}
		return err
	}

	if user.Secret.Valid {
		return nil
	}

	secret, err := common.MakeRandHexString(s.cfg.SecretLength)
	if err != nil {
		return err
	}
	user.Activate(secret)

	return s.repomanager.Users(tx).Update(ctx, user)
}

// UpdateParticipant persists changed start/end timestamps for an existing
// enrollment.
func (s *ParticipantService) UpdateParticipant(ctx context.Context, participant *models.Participant) error {
	if err := validateID("user", participant.UserID); err != nil {
		return err
	}
	if err := validateID("experiment", participant.ExperimentID); err != nil {
		return err
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, participant.UserID); err != nil {
		return fmt.Errorf("searching user %d: %w", participant.UserID, err)
	}
	if _, err := s.repomanager.Experiments(s.db).FindByID(ctx, participant.ExperimentID); err != nil {
		return fmt.Errorf("searching experiment %d: %w", participant.ExperimentID, err)
	}

	return s.repomanager.Participants(s.db).Update(ctx, participant)
}

// DeleteParticipant removes the enrollment if it exists. Removing a missing
// enrollment is not an error.
func (s *ParticipantService) DeleteParticipant(ctx context.Context, userID, experimentID int64) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	if err := validateID("experiment", experimentID); err != nil {
		return err
	}

	return s.repomanager.Participants(s.db).Delete(ctx, userID, experimentID)
}

// SimultaneousParticipation reports whether the user holds more than one
// unfinished enrollment across all experiments.
func (s *ParticipantService) SimultaneousParticipation(ctx context.Context, userID int64) (bool, error) {
	if err := validateID("user", userID); err != nil {
		return false, err
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, userID); err != nil {
		return false, fmt.Errorf("searching user %d: %w", userID, err)
	}

	unfinished, err := s.repomanager.Participants(s.db).FindUnfinishedByUser(ctx, userID)
	if err != nil {
		return false, err
	}

	return len(unfinished) > 1, nil
}

// IsInvalidParticipant is the gate evaluated before accepting any experiment
// telemetry write. It reports true (invalid) when the enrollment does not
// exist, the experiment is inactive, the presented secret does not match, or,
// when requireActiveUser is set, the account is not active. State is read
// fresh on every call.
func (s *ParticipantService) IsInvalidParticipant(ctx context.Context, userID, experimentID int64, secret string, requireActiveUser bool) (bool, error) {
	if err := validateID("user", userID); err != nil {
		return false, err
	}
	if err := validateID("experiment", experimentID); err != nil {
		return false, err
	}
	if strings.TrimSpace(secret) == "" {
		return false, fmt.Errorf("%w: cannot verify participant with blank secret", common.ErrInvalidInput)
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	experiment, err := s.repomanager.Experiments(s.db).FindByID(ctx, experimentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	if _, err := s.repomanager.Participants(s.db).Find(ctx, userID, experimentID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	if (requireActiveUser && !user.Active()) || !experiment.Active() {
		return true, nil
	}

	return !user.Secret.Valid || user.Secret.String != secret, nil
}

// DeactivateParticipantAccounts deactivates the accounts of every
// participant of the experiment, except users still mid-flight in another
// experiment. A participant row without a user is a data inconsistency and
// aborts the operation.
func (s *ParticipantService) DeactivateParticipantAccounts(ctx context.Context, experimentID int64) error {
	if err := validateID("experiment", experimentID); err != nil {
		return err
	}

	if _, err := s.repomanager.Experiments(s.db).FindByID(ctx, experimentID); err != nil {
		return fmt.Errorf("searching experiment %d: %w", experimentID, err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		participants, err := s.repomanager.Participants(tx).FindAllByExperiment(ctx, experimentID)
		if err != nil {
			return err
		}

		for _, participant := range participants {
			user, err := s.repomanager.Users(tx).FindByID(ctx, participant.UserID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("%w: no user entry for participant %d of experiment %d",
						common.ErrCorrupt, participant.UserID, experimentID)
				}
				return err
			}

			unfinished, err := s.repomanager.Participants(tx).FindUnfinishedByUser(ctx, participant.UserID)
			if err != nil {
				return err
			}
			if len(unfinished) > 1 {
				// still in flight elsewhere, keep the account usable
				continue
			}

			user.Deactivate()
			if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeactivateInactiveExperiments deactivates every active experiment whose
// most recent participant start or finish is older than the configured
// inactivity window. Experiments without participants are left active. Only
// the experiment flag changes; participant accounts are untouched.
func (s *ParticipantService) DeactivateInactiveExperiments(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot deactivate inactive experiments with zero timestamp", common.ErrInvalidInput)
	}

	cutoff := now.AddDate(0, 0, -s.cfg.ExperimentInactiveDays)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		experiments, err := s.repomanager.Experiments(tx).FindAllActive(ctx)
		if err != nil {
			return err
		}

		for _, experiment := range experiments {
			participants, err := s.repomanager.Participants(tx).FindAllByExperiment(ctx, experiment.ID)
			if err != nil {
				return err
			}
			if len(participants) == 0 {
				continue
			}

			lastStart, lastEnd := latestActivity(participants)
			inactiveStart := lastStart.Valid && lastStart.Time.Before(cutoff)
			inactiveEnd := lastEnd.Valid && lastEnd.Time.Before(cutoff)
			if !inactiveStart && !inactiveEnd {
				continue
			}

			experiment.Deactivate()
			if err := s.repomanager.Experiments(tx).Update(ctx, experiment); err != nil {
				return err
			}
			s.logger.Info(ctx, "deactivated inactive experiment", "experiment", experiment.ID)
		}

		return nil
	})
}

// latestActivity returns the most recent non-null start and end timestamps
// across the given participants.
func latestActivity(participants []*models.Participant) (lastStart, lastEnd sql.NullTime) {
	for _, p := range participants {
		if p.Start.Valid && (!lastStart.Valid || p.Start.Time.After(lastStart.Time)) {
			lastStart = p.Start
		}
		if p.End.Valid && (!lastEnd.Valid || p.End.Time.After(lastEnd.Time)) {
			lastEnd = p.End
		}
	}
	return lastStart, lastEnd
}

// ExperimentInfoForParticipant returns the ids and titles of the experiments
// the user is enrolled in.
func (s *ParticipantService) ExperimentInfoForParticipant(ctx context.Context, userID int64) (map[int64]string, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("searching user %d: %w", userID, err)
	}

	participants, err := s.repomanager.Participants(s.db).FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := make(map[int64]string, len(participants))
	for _, participant := range participants {
		experiment, err := s.repomanager.Experiments(s.db).FindByID(ctx, participant.ExperimentID)
		if err != nil {
			return nil, err
		}
		info[experiment.ID] = experiment.Title
	}

	return info, nil
}
