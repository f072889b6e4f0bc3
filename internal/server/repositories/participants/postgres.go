package participants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/server/models"
)

// Postgres error codes for unique and foreign key violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func constraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation
	}
	return false
}

func (r *PostgresRepository) Create(ctx context.Context, participant *models.Participant) error {
	query :=
		`INSERT INTO participants (user_id, experiment_id, start_time, end_time)
		 VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, participant.UserID, participant.ExperimentID,
		participant.Start, participant.End)
	if err != nil {
		if constraintError(err) {
			return fmt.Errorf("%w: %v", common.ErrConstraint, err)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID, experimentID int64) (*models.Participant, error) {
	query :=
		`SELECT user_id, experiment_id, start_time, end_time FROM participants
		 WHERE user_id = $1 AND experiment_id = $2`

	participant := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, userID, experimentID).
		Scan(&participant.UserID, &participant.ExperimentID, &participant.Start, &participant.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return participant, nil
}

func (r *PostgresRepository) Update(ctx context.Context, participant *models.Participant) error {
	query :=
		`UPDATE participants SET start_time = $3, end_time = $4
		 WHERE user_id = $1 AND experiment_id = $2`

	res, err := r.db.ExecContext(ctx, query, participant.UserID, participant.ExperimentID,
		participant.Start, participant.End)
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

func (r *PostgresRepository) Delete(ctx context.Context, userID, experimentID int64) error {
	query := `DELETE FROM participants WHERE user_id = $1 AND experiment_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, experimentID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindAllByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error) {
	query :=
		`SELECT user_id, experiment_id, start_time, end_time FROM participants
		 WHERE experiment_id = $1`

	return r.queryList(ctx, query, experimentID)
}

func (r *PostgresRepository) FindAllByUser(ctx context.Context, userID int64) ([]*models.Participant, error) {
	query :=
		`SELECT user_id, experiment_id, start_time, end_time FROM participants
		 WHERE user_id = $1`

	return r.queryList(ctx, query, userID)
}

func (r *PostgresRepository) FindUnfinishedByUser(ctx context.Context, userID int64) ([]*models.Participant, error) {
	query :=
		`SELECT user_id, experiment_id, start_time, end_time FROM participants
		 WHERE user_id = $1 AND end_time IS NULL`

	return r.queryList(ctx, query, userID)
}

func (r *PostgresRepository) FindUnfinishedByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error) {
	query :=
		`SELECT user_id, experiment_id, start_time, end_time FROM participants
		 WHERE experiment_id = $1 AND end_time IS NULL`

	return r.queryList(ctx, query, experimentID)
}

func (r *PostgresRepository) queryList(ctx context.Context, query string, arg any) ([]*models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		participant := &models.Participant{}
		if err := rows.Scan(&participant.UserID, &participant.ExperimentID,
			&participant.Start, &participant.End); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return participants, nil
}
