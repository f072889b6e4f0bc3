package repomanager

import (
	"context"
	"database/sql"

	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/server/repositories/courses"
	"github.com/edulog/edulog/internal/server/repositories/experiments"
	"github.com/edulog/edulog/internal/server/repositories/participants"
	"github.com/edulog/edulog/internal/server/repositories/tokens"
	"github.com/edulog/edulog/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a plain connection or
// a transaction, and exposes a schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Experiments(db dbx.DBTX) experiments.Repository
	Courses(db dbx.DBTX) courses.Repository
	Participants(db dbx.DBTX) participants.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}
