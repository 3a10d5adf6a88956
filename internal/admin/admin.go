// Package admin implements the maintenance commands of the admin binary:
// schema migration, superuser creation and an on-demand expiration sweep.
package admin

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/fruitful/internal/logging"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fruitful/internal/server/services"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate          apply pending schema migrations
  createsuperuser  create a superuser interactively
  sweep            delete every expired fruit now
`

var ErrPasswordMismatch = errors.New("passwords do not match")

type App struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *services.UserService
	sweeper     *services.Sweeper
	in          *bufio.Reader
	out         io.Writer
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(c.DatabaseDriver, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
	expiration := services.NewExpirationHandler(db, rm)

	return &App{
		db:          db,
		repomanager: rm,
		users:       services.NewUserService(db, rm, c),
		sweeper:     services.NewSweeper(db, rm, expiration, logger),
		in:          bufio.NewReader(in),
		out:         out,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// Run executes the command named by the first argument. Remaining
// arguments are configuration flags already consumed by config.LoadConfig.
func (a *App) Run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		return a.migrate(ctx)
	case "createsuperuser":
		return a.createSuperuser(ctx)
	case "sweep":
		return a.sweep(ctx)
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	case "":
		fmt.Fprint(a.out, usage)
		return errors.New("missing command")
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) migrate(ctx context.Context) error {
	if err := a.repomanager.RunMigrations(ctx, a.db); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) createSuperuser(ctx context.Context) error {
	email, err := GetSimpleText(a.in, "Email", a.out)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.in, "Full name", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Password (again)", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	in := models.UserCreate{Email: email, FullName: fullName, Password: password, IsSuperuser: true}
	if err := in.Validate(); err != nil {
		return err
	}

	if err := a.repomanager.RunMigrations(ctx, a.db); err != nil {
		return err
	}
	user, created, err := a.users.EnsureSuperuser(ctx, in.Email, in.Password, in.FullName)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(a.out, "User %s already exists\n", user.Email)
		return nil
	}
	fmt.Fprintf(a.out, "Superuser %s created (id=%s)\n", user.Email, user.ID)
	return nil
}

func (a *App) sweep(ctx context.Context) error {
	n, err := a.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d expired fruits\n", n)
	return nil
}
