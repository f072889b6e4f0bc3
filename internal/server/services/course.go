package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/config"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
)

// CourseService handles course maintenance.
type CourseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	cfg         *config.Config
}

// NewCourseService constructs a CourseService using repositories and server
// config.
func NewCourseService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *CourseService {
	return &CourseService{db: db, repomanager: m, logger: logger, cfg: cfg}
}

// DeactivateInactiveCourses deactivates every active course that has linked
// experiments, all of them inactive, and no structural change within the
// configured course inactivity window. Courses without experiment links are
// left active.
func (s *CourseService) DeactivateInactiveCourses(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: cannot deactivate inactive courses with zero timestamp", common.ErrInvalidInput)
	}

	cutoff := now.AddDate(0, 0, -s.cfg.CourseInactiveDays)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		active, err := s.repomanager.Courses(tx).FindAllActive(ctx)
		if err != nil {
			return err
		}

		for _, course := range active {
			links, err := s.repomanager.Courses(tx).FindLinksByCourse(ctx, course.ID)
			if err != nil {
				return err
			}
			if len(links) == 0 {
				continue
			}

			anyActive := false
			for _, link := range links {
				experiment, err := s.repomanager.Experiments(tx).FindByID(ctx, link.ExperimentID)
				if err != nil {
					return err
				}
				if experiment.Active() {
					anyActive = true
					break
				}
			}
			if anyActive || !course.LastChanged.Before(cutoff) {
				continue
			}

			course.Deactivate()
			if err := s.repomanager.Courses(tx).Update(ctx, course); err != nil {
				return err
			}
			s.logger.Info(ctx, "deactivated inactive course", "course", course.ID)
		}

		return nil
	})
}
