package courses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const courseColumns = `id, title, description, content, status, last_changed`

func scanCourse(row interface{ Scan(dest ...any) error }) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Content, &c.Status, &c.LastChanged)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	course, err := scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return course, nil
}

func (r *PostgresRepository) FindAllActive(ctx context.Context) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE status = $1`

	rows, err := r.db.QueryContext(ctx, query, models.CourseActive)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return courses, nil
}

func (r *PostgresRepository) Update(ctx context.Context, course *models.Course) error {
	query :=
		`UPDATE courses
		 SET title = $2, description = $3, content = $4, status = $5, last_changed = $6
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, course.ID, course.Title, course.Description,
		course.Content, course.Status, course.LastChanged)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) LinkExists(ctx context.Context, courseID, experimentID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM course_experiments WHERE course_id = $1 AND experiment_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, courseID, experimentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) FindLinksByCourse(ctx context.Context, courseID int64) ([]*models.CourseExperiment, error) {
	query := `SELECT course_id, experiment_id, added FROM course_experiments WHERE course_id = $1`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var links []*models.CourseExperiment
	for rows.Next() {
		link := &models.CourseExperiment{}
		if err := rows.Scan(&link.CourseID, &link.ExperimentID, &link.Added); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return links, nil
}

func (r *PostgresRepository) FindParticipantsByCourse(ctx context.Context, courseID int64) ([]*models.CourseParticipant, error) {
	query := `SELECT user_id, course_id, added FROM course_participants WHERE course_id = $1`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var members []*models.CourseParticipant
	for rows.Next() {
		member := &models.CourseParticipant{}
		if err := rows.Scan(&member.UserID, &member.CourseID, &member.Added); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return members, nil
}
