package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/models"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
)

// Token lifetimes by type. Registration gets a day; everything else an hour.
const (
	emailTokenExpires       = time.Hour
	passwordTokenExpires    = time.Hour
	deactivatedTokenExpires = time.Hour
	registerTokenExpires    = 24 * time.Hour
)

// TokenService is the token authority: it issues opaque single-use tokens
// bound to a user and runs the expiry sweeps that reclaim stale state.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

// NewTokenService constructs a TokenService using repositories.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *TokenService {
	return &TokenService{db: db, repomanager: m, logger: logger, now: time.Now}
}

// GenerateToken issues a token of the given type for the user, with an
// expiration computed from the type-specific offset. Metadata may carry a
// type-specific payload such as a pending email address.
func (s *TokenService) GenerateToken(ctx context.Context, typ models.TokenType, metadata string, userID int64) (*models.Token, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: cannot generate token with empty type", common.ErrInvalidInput)
	}

	if _, err := s.repomanager.Users(s.db).FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("searching user %d: %w", userID, err)
	}

	token := &models.Token{
		Value:      uuid.NewString(),
		Type:       typ,
		Expiration: s.now().Add(expirationOffset(typ)),
		UserID:     userID,
	}
	if metadata != "" {
		token.Metadata = sql.NullString{String: metadata, Valid: true}
	}

	stored, err := s.repomanager.Tokens(s.db).Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("creating token for user %d: %w", userID, err)
	}
	if stored.Value == "" {
		return nil, fmt.Errorf("%w: empty token value for user %d", common.ErrStore, userID)
	}

	return stored, nil
}

func expirationOffset(typ models.TokenType) time.Duration {
	switch typ {
	case models.TokenChangeEmail:
		return emailTokenExpires
	case models.TokenForgotPassword:
		return passwordTokenExpires
	case models.TokenDeactivated:
		return deactivatedTokenExpires
	default:
		return registerTokenExpires
	}
}

// FindToken returns the token with the given value.
func (s *TokenService) FindToken(ctx context.Context, value string) (*models.Token, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: cannot search for token with blank value", common.ErrInvalidInput)
	}

	token, err := s.repomanager.Tokens(s.db).FindByValue(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("searching token: %w", err)
	}

	return token, nil
}

// DeleteToken removes the token with the given value. Tokens are single-use;
// consumers call this after acting on one. Deleting a missing value is not
// an error.
func (s *TokenService) DeleteToken(ctx context.Context, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: cannot delete token with blank value", common.ErrInvalidInput)
	}

	return s.repomanager.Tokens(s.db).DeleteByValue(ctx, value)
}

// DeleteExpiredTokens removes every token expired before the given time,
// regardless of type.
func (s *TokenService) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot delete expired tokens with zero timestamp", common.ErrInvalidInput)
	}

	return s.repomanager.Tokens(s.db).DeleteExpiredBefore(ctx, now)
}

// DeleteExpiredAccounts deletes the user accounts whose registration tokens
// expired before the given time: an unconfirmed signup is abandoned
// entirely, not just its token. A registration token whose user is already
// gone is a data inconsistency and aborts the sweep.
func (s *TokenService) DeleteExpiredAccounts(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot delete expired accounts with zero timestamp", common.ErrInvalidInput)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		expired, err := s.repomanager.Tokens(tx).FindExpiredByType(ctx, now, models.TokenRegister)
		if err != nil {
			return err
		}

		for _, token := range expired {
			if token.UserID < common.MinID {
				return fmt.Errorf("%w: registration token %s has no user", common.ErrCorrupt, token.Value)
			}
			if err := s.repomanager.Users(tx).Delete(ctx, token.UserID); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("%w: registration token %s references missing user %d",
						common.ErrCorrupt, token.Value, token.UserID)
				}
				return err
			}
			s.logger.Info(ctx, "deleted expired unconfirmed account", "user", token.UserID)
		}

		return nil
	})
}

// ReactivateUserAccounts reactivates the accounts whose deactivation tokens
// expired before the given time: the failed-login counter is reset and the
// account marked active again. The secret is not restored; participants get
// a fresh one only through an explicit re-invite. A token without a user, or
// a user that cannot be persisted, aborts the sweep.
func (s *TokenService) ReactivateUserAccounts(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot reactivate accounts with zero timestamp", common.ErrInvalidInput)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		expired, err := s.repomanager.Tokens(tx).FindExpiredByType(ctx, now, models.TokenDeactivated)
		if err != nil {
			return err
		}

		for _, token := range expired {
			if token.UserID < common.MinID {
				return fmt.Errorf("%w: deactivation token %s has no user", common.ErrCorrupt, token.Value)
			}

			user, err := s.repomanager.Users(tx).FindByID(ctx, token.UserID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("%w: deactivation token %s references missing user %d",
						common.ErrCorrupt, token.Value, token.UserID)
				}
				return err
			}

			user.Reactivate()
			if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
				return fmt.Errorf("reactivating user %d: %w", user.ID, err)
			}
		}

		return nil
	})
}
