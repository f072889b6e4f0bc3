package experiments

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

const experimentColumns = `id, title, description, info, postscript, status, gui_url, project_key`

func scanExperiment(row interface{ Scan(dest ...any) error }) (*models.Experiment, error) {
	e := &models.Experiment{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Info, &e.Postscript,
		&e.Status, &e.GUIURL, &e.ProjectKey)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE id = $1`

	experiment, err := scanExperiment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return experiment, nil
}

func (r *PostgresRepository) FindAllActive(ctx context.Context) ([]*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE status = $1`

	rows, err := r.db.QueryContext(ctx, query, models.ExperimentActive)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var experiments []*models.Experiment
	for rows.Next() {
		experiment, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		experiments = append(experiments, experiment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return experiments, nil
}

func (r *PostgresRepository) Update(ctx context.Context, experiment *models.Experiment) error {
	query :=
		`UPDATE experiments
		 SET title = $2, description = $3, info = $4, postscript = $5, status = $6,
		     gui_url = $7, project_key = $8
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, experiment.ID, experiment.Title, experiment.Description,
		experiment.Info, experiment.Postscript, experiment.Status, experiment.GUIURL, experiment.ProjectKey)
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
