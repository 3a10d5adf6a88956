// Package server wires configuration, storage and the engines together and
// runs the HTTP API with the optional expired-fruit sweep.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fruitful/internal/logging"
	"github.com/dmitrijs2005/fruitful/internal/ratelimit"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/httpapi"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fruitful/internal/server/services"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *services.UserService
	buckets     *services.BucketService
	fruits      *services.FruitService
	sweeper     *services.Sweeper
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	db, err := sql.Open(c.DatabaseDriver, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	expiration := services.NewExpirationHandler(db, rm)
	buckets := services.NewBucketService(db, rm, expiration)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		users:       services.NewUserService(db, rm, c),
		buckets:     buckets,
		fruits:      services.NewFruitService(db, rm, expiration, buckets),
		sweeper:     services.NewSweeper(db, rm, expiration, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// bootstrap migrates the schema and creates the first superuser when one is
// configured.
func (app *App) bootstrap(ctx context.Context) error {
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return err
	}

	if app.config.FirstSuperuserEmail == "" {
		return nil
	}
	_, created, err := app.users.EnsureSuperuser(ctx, app.config.FirstSuperuserEmail,
		app.config.FirstSuperuserPassword, app.config.FirstSuperuserFullName)
	if err != nil {
		return fmt.Errorf("superuser bootstrap: %w", err)
	}
	if created {
		app.logger.Info(ctx, "Created first superuser", "email", app.config.FirstSuperuserEmail)
	}
	return nil
}

func (app *App) apiOptions() ([]httpapi.Option, func(), error) {
	if app.config.RedisAddr == "" {
		return nil, func() {}, nil
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(app.config.RedisAddr, app.config.RedisPassword,
		"fruitful:login", app.config.LoginRateLimit, app.config.LoginRateWindow)
	if err != nil {
		return nil, nil, err
	}
	return []httpapi.Option{httpapi.WithLoginLimiter(limiter)}, func() { _ = limiter.Close() }, nil
}

// Run blocks until a signal arrives or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.bootstrap(ctx); err != nil {
		return err
	}

	opts, closeOpts, err := app.apiOptions()
	if err != nil {
		return err
	}
	defer closeOpts()

	api := httpapi.NewAPI(app.config, app.logger, app.users, app.buckets, app.fruits, opts...)
	srv := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, api.Routes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if schedule := app.config.SweepSchedule; schedule != "" {
		g.Go(func() error {
			return app.sweeper.Run(gctx, schedule)
		})
	}

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
