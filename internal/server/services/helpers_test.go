package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/dbx"
	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/config"
	"github.com/edulog/edulog/internal/server/models"
	coursesrepo "github.com/edulog/edulog/internal/server/repositories/courses"
	experimentsrepo "github.com/edulog/edulog/internal/server/repositories/experiments"
	participantsrepo "github.com/edulog/edulog/internal/server/repositories/participants"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
	tokensrepo "github.com/edulog/edulog/internal/server/repositories/tokens"
	usersrepo "github.com/edulog/edulog/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

type testLogger struct {
	infos []string
	warns []string
	errs  []string
}

func (l *testLogger) Info(ctx context.Context, msg string, args ...any) {
	l.infos = append(l.infos, msg)
}
func (l *testLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.warns = append(l.warns, msg)
}
func (l *testLogger) Error(ctx context.Context, msg string, args ...any) {
	l.errs = append(l.errs, msg)
}
func (l *testLogger) With(args ...any) logging.Logger { return l }

// --- in-memory repositories ---

type fakeUsersRepo struct {
	users map[int64]*models.User

	findErr   error
	updateErr error
	deleteErr error

	updated []int64
	deleted []int64
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return common.ErrNotFound
	}
	f.users[user.ID] = user
	f.updated = append(f.updated, user.ID)
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsersRepo) FindParticipantsLastLoginBefore(ctx context.Context, cutoff time.Time) ([]*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*models.User
	for _, user := range f.users {
		if user.Role == models.RoleParticipant && user.LastLogin.Valid && user.LastLogin.Time.Before(cutoff) {
			out = append(out, user)
		}
	}
	return out, nil
}

type fakeExperimentsRepo struct {
	experiments []*models.Experiment
	updateErr   error
	updated     []int64
}

func (f *fakeExperimentsRepo) FindByID(ctx context.Context, id int64) (*models.Experiment, error) {
	for _, e := range f.experiments {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeExperimentsRepo) FindAllActive(ctx context.Context) ([]*models.Experiment, error) {
	var out []*models.Experiment
	for _, e := range f.experiments {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExperimentsRepo) Update(ctx context.Context, experiment *models.Experiment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, e := range f.experiments {
		if e.ID == experiment.ID {
			f.experiments[i] = experiment
			f.updated = append(f.updated, experiment.ID)
			return nil
		}
	}
	return common.ErrNotFound
}

type fakeCoursesRepo struct {
	courses []*models.Course
	links   []*models.CourseExperiment
	members []*models.CourseParticipant

	updateErr error
	updated   []int64
}

func (f *fakeCoursesRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	for _, c := range f.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeCoursesRepo) FindAllActive(ctx context.Context) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range f.courses {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCoursesRepo) Update(ctx context.Context, course *models.Course) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, c := range f.courses {
		if c.ID == course.ID {
			f.courses[i] = course
			f.updated = append(f.updated, course.ID)
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeCoursesRepo) LinkExists(ctx context.Context, courseID, experimentID int64) (bool, error) {
	for _, l := range f.links {
		if l.CourseID == courseID && l.ExperimentID == experimentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCoursesRepo) FindLinksByCourse(ctx context.Context, courseID int64) ([]*models.CourseExperiment, error) {
	var out []*models.CourseExperiment
	for _, l := range f.links {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCoursesRepo) FindParticipantsByCourse(ctx context.Context, courseID int64) ([]*models.CourseParticipant, error) {
	var out []*models.CourseParticipant
	for _, m := range f.members {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeParticipantsRepo struct {
	rows []*models.Participant

	createErr error
	findErr   error

	created [][2]int64
}

func (f *fakeParticipantsRepo) Create(ctx context.Context, participant *models.Participant) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, p := range f.rows {
		if p.UserID == participant.UserID && p.ExperimentID == participant.ExperimentID {
			return fmt.Errorf("%w: duplicate enrollment", common.ErrConstraint)
		}
	}
	f.rows = append(f.rows, participant)
	f.created = append(f.created, [2]int64{participant.UserID, participant.ExperimentID})
	return nil
}

func (f *fakeParticipantsRepo) Find(ctx context.Context, userID, experimentID int64) (*models.Participant, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, p := range f.rows {
		if p.UserID == userID && p.ExperimentID == experimentID {
			return p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeParticipantsRepo) Update(ctx context.Context, participant *models.Participant) error {
	for i, p := range f.rows {
		if p.UserID == participant.UserID && p.ExperimentID == participant.ExperimentID {
			f.rows[i] = participant
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeParticipantsRepo) Delete(ctx context.Context, userID, experimentID int64) error {
	for i, p := range f.rows {
		if p.UserID == userID && p.ExperimentID == experimentID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeParticipantsRepo) FindAllByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range f.rows {
		if p.ExperimentID == experimentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantsRepo) FindAllByUser(ctx context.Context, userID int64) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range f.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantsRepo) FindUnfinishedByUser(ctx context.Context, userID int64) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range f.rows {
		if p.UserID == userID && p.Unfinished() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantsRepo) FindUnfinishedByExperiment(ctx context.Context, experimentID int64) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range f.rows {
		if p.ExperimentID == experimentID && p.Unfinished() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeTokensRepo struct {
	tokens []*models.Token

	createErr error
	createOut *models.Token

	deletedValues []string
	deletedBefore []time.Time
}

func (f *fakeTokensRepo) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	f.tokens = append(f.tokens, token)
	return token, nil
}

func (f *fakeTokensRepo) FindByValue(ctx context.Context, value string) (*models.Token, error) {
	for _, token := range f.tokens {
		if token.Value == value {
			return token, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeTokensRepo) DeleteByValue(ctx context.Context, value string) error {
	for i, token := range f.tokens {
		if token.Value == value {
			f.tokens = append(f.tokens[:i], f.tokens[i+1:]...)
			break
		}
	}
	f.deletedValues = append(f.deletedValues, value)
	return nil
}

func (f *fakeTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	var kept []*models.Token
	for _, token := range f.tokens {
		if !token.Expired(cutoff) {
			kept = append(kept, token)
		}
	}
	f.tokens = kept
	f.deletedBefore = append(f.deletedBefore, cutoff)
	return nil
}

func (f *fakeTokensRepo) FindExpiredByType(ctx context.Context, cutoff time.Time, typ models.TokenType) ([]*models.Token, error) {
	var out []*models.Token
	for _, token := range f.tokens {
		if token.Type == typ && token.Expired(cutoff) {
			out = append(out, token)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	e *fakeExperimentsRepo
	c *fakeCoursesRepo
	p *fakeParticipantsRepo
	t *fakeTokensRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{users: map[int64]*models.User{}},
		e: &fakeExperimentsRepo{},
		c: &fakeCoursesRepo{},
		p: &fakeParticipantsRepo{},
		t: &fakeTokensRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.u }
func (m *fakeRepoManager) Experiments(db dbx.DBTX) experimentsrepo.Repository { return m.e }
func (m *fakeRepoManager) Courses(db dbx.DBTX) coursesrepo.Repository         { return m.c }
func (m *fakeRepoManager) Participants(db dbx.DBTX) participantsrepo.Repository {
	return m.p
}
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokensrepo.Repository { return m.t }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// model builders used across the service tests

func activeUser(id int64, secret string) *models.User {
	user := &models.User{
		ID:       id,
		Username: fmt.Sprintf("user%d", id),
		Role:     models.RoleParticipant,
		Status:   models.AccountActive,
	}
	if secret != "" {
		user.Secret = sql.NullString{String: secret, Valid: true}
	}
	return user
}

func activeExperiment(id int64, title string) *models.Experiment {
	return &models.Experiment{ID: id, Title: title, Status: models.ExperimentActive}
}

func activeCourse(id int64, lastChanged time.Time) *models.Course {
	return &models.Course{ID: id, Title: fmt.Sprintf("course%d", id), Status: models.CourseActive, LastChanged: lastChanged}
}
