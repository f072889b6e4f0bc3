// Package experiments contains the experiment store repository.
package experiments

import (
	"context"

	"github.com/edulog/edulog/internal/server/models"
)

// Repository provides access to experiment rows.
type Repository interface {
	// FindByID returns the experiment with the given id or common.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*models.Experiment, error)

	// FindAllActive returns every experiment whose status is active.
	FindAllActive(ctx context.Context) ([]*models.Experiment, error)

	// Update persists the experiment. Returns common.ErrNotFound if the
	// row does not exist.
	Update(ctx context.Context, experiment *models.Experiment) error
}
