// Package participants contains the participation ledger repository.
package participants

import (
	"context"

	"github.com/edulog/edulog/internal/server/models"
)

// Repository provides access to participant rows. The lifecycle controller
// is the only writer of this table.
type Repository interface {
	// Create inserts a new enrollment. Duplicate pairings and missing
	// referents surface as common.ErrConstraint.
	Create(ctx context.Context, participant *models.Participant) error

	// Find returns the enrollment for the pair or common.ErrNotFound.
	Find(ctx context.Context, userID, experimentID int64) (*models.Participant, error)

	// Update persists start/end timestamps. Returns common.ErrNotFound if
	// the row does not exist.
	Update(ctx context.Context, participant *models.Participant) error

	// Delete removes the enrollment. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID, experimentID int64) error

	// FindAllByExperiment returns every enrollment of the experiment.
	FindAllByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error)

	// FindAllByUser returns every enrollment of the user.
	FindAllByUser(ctx context.Context, userID int64) ([]*models.Participant, error)

	// FindUnfinishedByUser returns the user's enrollments with no end time.
	FindUnfinishedByUser(ctx context.Context, userID int64) ([]*models.Participant, error)

	// FindUnfinishedByExperiment returns the experiment's enrollments with
	// no end time.
	FindUnfinishedByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error)
}
