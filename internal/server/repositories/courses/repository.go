// Package courses contains the course store repository, including the
// course-experiment links and course memberships.
package courses

import (
	"context"

	"github.com/edulog/edulog/internal/server/models"
)

// Repository provides access to course rows and their link tables.
type Repository interface {
	// FindByID returns the course with the given id or common.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*models.Course, error)

	// FindAllActive returns every course whose status is active.
	FindAllActive(ctx context.Context) ([]*models.Course, error)

	// Update persists the course. Returns common.ErrNotFound if the row
	// does not exist.
	Update(ctx context.Context, course *models.Course) error

	// LinkExists reports whether the experiment is offered as part of the
	// course.
	LinkExists(ctx context.Context, courseID, experimentID int64) (bool, error)

	// FindLinksByCourse returns the experiment links of the course.
	FindLinksByCourse(ctx context.Context, courseID int64) ([]*models.CourseExperiment, error)

	// FindParticipantsByCourse returns the course memberships of the course.
	FindParticipantsByCourse(ctx context.Context, courseID int64) ([]*models.CourseParticipant, error)
}
