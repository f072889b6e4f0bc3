// Package server initializes and runs the lifecycle engine: it opens the
// database, runs migrations, wires the services, and starts the periodic
// sweep scheduler. It shuts down cleanly on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edulog/edulog/internal/logging"
	"github.com/edulog/edulog/internal/server/config"
	"github.com/edulog/edulog/internal/server/jobs"
	"github.com/edulog/edulog/internal/server/projectstore"
	"github.com/edulog/edulog/internal/server/repositories/repomanager"
	"github.com/edulog/edulog/internal/server/services"
)

type App struct {
	config             *config.Config
	logger             logging.Logger
	db                 *sql.DB
	scheduler          *jobs.Scheduler
	participantService *services.ParticipantService
	tokenService       *services.TokenService
	userService        *services.UserService
	courseService      *services.CourseService
	projectStore       *projectstore.Store
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	ps := services.NewParticipantService(db, rm, logger, cfg)
	ts := services.NewTokenService(db, rm, logger)
	us := services.NewUserService(db, rm, logger, cfg)
	cs := services.NewCourseService(db, rm, logger, cfg)

	scheduler := jobs.NewScheduler(ts, us, ps, cs, logger, cfg.TokenSweepSpec, cfg.DeactivationSweepSpec)

	return &App{
		config:             cfg,
		logger:             logger,
		db:                 db,
		scheduler:          scheduler,
		participantService: ps,
		tokenService:       ts,
		userService:        us,
		courseService:      cs,
		projectStore:       projectstore.New(cfg),
	}, nil
}

// Participants returns the lifecycle controller.
func (app *App) Participants() *services.ParticipantService { return app.participantService }

// Tokens returns the token authority.
func (app *App) Tokens() *services.TokenService { return app.tokenService }

// Users returns the account maintenance service.
func (app *App) Users() *services.UserService { return app.userService }

// Courses returns the course maintenance service.
func (app *App) Courses() *services.CourseService { return app.courseService }

// Projects returns the experiment project blob store.
func (app *App) Projects() *projectstore.Store { return app.projectStore }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the sweep scheduler and blocks until the context is cancelled
// or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler error: %w", err)
	}

	<-ctx.Done()

	app.logger.Info(ctx, "shutting down")
	<-app.scheduler.Stop().Done()

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("db close error: %w", err)
	}

	return nil
}
