package tokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	q := `(?s)^INSERT\s+INTO\s+tokens\s*\(value,\s*type,\s*expiration,\s*metadata,\s*user_id\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+value\s*$`

	rows := sqlmock.NewRows([]string{"value"}).AddRow("tok-1")
	mock.ExpectQuery(q).
		WithArgs("tok-1", models.TokenRegister, expires, sql.NullString{}, int64(1)).
		WillReturnRows(rows)

	token := &models.Token{Value: "tok-1", Type: models.TokenRegister, Expiration: expires, UserID: 1}
	got, err := repo.Create(context.Background(), token)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.Value != "tok-1" {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+tokens`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Token{Value: "tok-1", Type: models.TokenRegister, UserID: 1})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByValue_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"value", "type", "expiration", "metadata", "user_id"}).
		AddRow("tok-1", "CHANGE_EMAIL", expires, "new@example.org", int64(1))

	mock.ExpectQuery(`SELECT\s+value,\s*type,\s*expiration,\s*metadata,\s*user_id\s+FROM\s+tokens\s+WHERE\s+value\s*=\s*\$1`).
		WithArgs("tok-1").
		WillReturnRows(rows)

	got, err := repo.FindByValue(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("FindByValue error: %v", err)
	}
	if got.Type != models.TokenChangeEmail || got.UserID != 1 {
		t.Fatalf("unexpected token: %+v", got)
	}
	if !got.Metadata.Valid || got.Metadata.String != "new@example.org" {
		t.Fatalf("metadata not scanned: %+v", got.Metadata)
	}
}

func TestFindByValue_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+value`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByValue(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByValue_MissingRowIsNoError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+tokens\s+WHERE\s+value\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByValue(context.Background(), "missing"); err != nil {
		t.Fatalf("DeleteByValue error: %v", err)
	}
}

func TestDeleteExpiredBefore(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE\s+FROM\s+tokens\s+WHERE\s+expiration\s*<\s*\$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteExpiredBefore(context.Background(), cutoff); err != nil {
		t.Fatalf("DeleteExpiredBefore error: %v", err)
	}
}

func TestFindExpiredByType(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"value", "type", "expiration", "metadata", "user_id"}).
		AddRow("tok-1", "REGISTER", cutoff.Add(-time.Hour), nil, int64(1)).
		AddRow("tok-2", "REGISTER", cutoff.Add(-time.Minute), nil, int64(2))

	mock.ExpectQuery(`SELECT\s+value,\s*type,\s*expiration,\s*metadata,\s*user_id\s+FROM\s+tokens\s+WHERE\s+expiration\s*<\s*\$1\s+AND\s+type\s*=\s*\$2`).
		WithArgs(cutoff, models.TokenRegister).
		WillReturnRows(rows)

	got, err := repo.FindExpiredByType(context.Background(), cutoff, models.TokenRegister)
	if err != nil {
		t.Fatalf("FindExpiredByType error: %v", err)
	}
	if len(got) != 2 || got[0].Value != "tok-1" || got[1].UserID != 2 {
		t.Fatalf("unexpected tokens: %+v", got)
	}
}
