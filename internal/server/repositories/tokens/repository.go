// Package tokens contains the token authority's repository.
package tokens

import (
	"context"
	"time"

	"github.com/edulog/edulog/internal/server/models"
)

// Repository provides access to token rows. The token authority is the only
// writer of this table.
type Repository interface {
	// Create inserts the token and returns the stored row.
	Create(ctx context.Context, token *models.Token) (*models.Token, error)

	// FindByValue returns the token with the given value or common.ErrNotFound.
	FindByValue(ctx context.Context, value string) (*models.Token, error)

	// DeleteByValue removes the token. Deleting a missing value is not an
	// error.
	DeleteByValue(ctx context.Context, value string) error

	// DeleteExpiredBefore removes every token whose expiration is strictly
	// before the cutoff, regardless of type.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error

	// FindExpiredByType returns tokens of the given type whose expiration
	// is strictly before the cutoff.
	FindExpiredByType(ctx context.Context, cutoff time.Time, typ models.TokenType) ([]*models.Token, error)
}
