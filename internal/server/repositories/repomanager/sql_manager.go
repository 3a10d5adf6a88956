package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/migrations"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/buckets"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/fruits"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// database/sql driver names registered by the imports above.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var dialects = map[string]string{
	DriverPostgres: "postgres",
	DriverSQLite:   "sqlite3",
}

// SQLRepositoryManager serves both drivers; the repositories share one
// portable SQL dialect and only migrations need to know which one is in use.
type SQLRepositoryManager struct {
	dialect string
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Buckets(db dbx.DBTX) buckets.Repository {
	return buckets.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Fruits(db dbx.DBTX) fruits.Repository {
	return fruits.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations up to the latest version.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// NewRepositoryManager returns a manager for the given database/sql driver.
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	dialect, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return &SQLRepositoryManager{dialect: dialect}, nil
}
