package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const userColumns = `id, username, email, role, language, password_hash, secret, attempts, status, last_login`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Language,
		&user.PasswordHash, &user.Secret, &user.Attempts, &user.Status, &user.LastLogin)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET email = $2, role = $3, language = $4, password_hash = $5, secret = $6,
		     attempts = $7, status = $8, last_login = $9
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Role, user.Language,
		user.PasswordHash, user.Secret, user.Attempts, user.Status, user.LastLogin)
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

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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

func (r *PostgresRepository) FindParticipantsLastLoginBefore(ctx context.Context, cutoff time.Time) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND last_login < $2`

	rows, err := r.db.QueryContext(ctx, query, models.RoleParticipant, cutoff)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}
