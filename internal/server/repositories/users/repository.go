// Package users contains the identity store repository.
package users

import (
	"context"
	"time"

	"github.com/edulog/edulog/internal/server/models"
)

// Repository provides access to user rows.
type Repository interface {
	// FindByID returns the user with the given id or common.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// Update persists the mutable account fields (status, secret, attempts,
	// email, language, last login). Returns common.ErrNotFound if the row
	// does not exist.
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user row. Returns common.ErrNotFound if nothing
	// was deleted.
	Delete(ctx context.Context, id int64) error

	// FindParticipantsLastLoginBefore returns all participant-role users
	// whose last login is before the cutoff.
	FindParticipantsLastLoginBefore(ctx context.Context, cutoff time.Time) ([]*models.User, error)
}
