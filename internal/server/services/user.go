package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/config"
	"github.com/edulog/edulog/internal/server/models"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
)

// UserService handles account maintenance around participation: deactivating
// long-idle participant accounts and re-inviting unfinished participants
// when an experiment reopens.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	cfg         *config.Config
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{db: db, repomanager: m, logger: logger, cfg: cfg}
}

// DeactivateOldParticipantAccounts deactivates every participant account
// whose last login is older than the configured participant inactivity
// window, clearing their secret.
func (s *UserService) DeactivateOldParticipantAccounts(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot deactivate old accounts with zero timestamp", common.ErrInvalidInput)
	}

	cutoff := now.AddDate(0, 0, -s.cfg.ParticipantInactiveDays)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		idle, err := s.repomanager.Users(tx).FindParticipantsLastLoginBefore(ctx, cutoff)
		if err != nil {
			return err
		}

		for _, user := range idle {
			user.Deactivate()
			if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
				return err
			}
		}

		return nil
	})
}

// ReinviteUnfinished reactivates the accounts of every participant who has
// not finished the given experiment, issuing a fresh secret to accounts that
// lost theirs. It returns the updated users so the caller can mail out new
// participation links. This is the only path that regenerates a cleared
// secret.
func (s *UserService) ReinviteUnfinished(ctx context.Context, experimentID int64) ([]*models.User, error) {
	if err := validateID("experiment", experimentID); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Experiments(s.db).FindByID(ctx, experimentID); err != nil {
		return nil, fmt.Errorf("searching experiment %d: %w", experimentID, err)
	}

	var updated []*models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		unfinished, err := s.repomanager.Participants(tx).FindUnfinishedByExperiment(ctx, experimentID)
		if err != nil {
			return err
		}

		for _, participant := range unfinished {
			user, err := s.repomanager.Users(tx).FindByID(ctx, participant.UserID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("%w: no user entry for participant %d of experiment %d",
						common.ErrCorrupt, participant.UserID, experimentID)
				}
				return err
			}

			if !user.Secret.Valid {
				secret, err := common.MakeRandHexString(s.cfg.SecretLength)
				if err != nil {
					return err
				}
				user.Activate(secret)
			} else {
				user.MarkActive()
			}

			if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
				return err
			}
			updated = append(updated, user)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
