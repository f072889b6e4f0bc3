package tokens

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

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	query :=
		`INSERT INTO tokens (value, type, expiration, metadata, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING value`

	err := r.db.QueryRowContext(ctx, query, token.Value, token.Type, token.Expiration,
		token.Metadata, token.UserID).Scan(&token.Value)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) FindByValue(ctx context.Context, value string) (*models.Token, error) {
	query :=
		`SELECT value, type, expiration, metadata, user_id FROM tokens
		 WHERE value = $1`

	token := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&token.Value, &token.Type, &token.Expiration, &token.Metadata, &token.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) DeleteByValue(ctx context.Context, value string) error {
	query := `DELETE FROM tokens WHERE value = $1`

	if _, err := r.db.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	query := `DELETE FROM tokens WHERE expiration < $1`

	if _, err := r.db.ExecContext(ctx, query, cutoff); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindExpiredByType(ctx context.Context, cutoff time.Time, typ models.TokenType) ([]*models.Token, error) {
	query :=
		`SELECT value, type, expiration, metadata, user_id FROM tokens
		 WHERE expiration < $1 AND type = $2`

	rows, err := r.db.QueryContext(ctx, query, cutoff, typ)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		token := &models.Token{}
		if err := rows.Scan(&token.Value, &token.Type, &token.Expiration,
			&token.Metadata, &token.UserID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
