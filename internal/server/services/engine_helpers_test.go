package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// engine bundles the fruit/bucket engines over a migrated SQLite file with
// a controllable clock.
type engine struct {
	db         *sql.DB
	rm         repomanager.RepositoryManager
	clock      time.Time
	expiration *ExpirationHandler
	buckets    *BucketService
	fruits     *FruitService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "fruitful.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open(repomanager.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(repomanager.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))
	db.SetMaxOpenConns(1)

	e := &engine{db: db, rm: rm, clock: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	e.expiration = NewExpirationHandler(db, rm)
	e.expiration.now = func() time.Time { return e.clock }
	e.buckets = NewBucketService(db, rm, e.expiration)
	e.fruits = NewFruitService(db, rm, e.expiration, e.buckets)
	return e
}

func (e *engine) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *engine) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.rm.Users(e.db).Create(context.Background(), &models.User{
		Email:          email,
		HashedPassword: "x",
		CreatedAt:      e.clock,
		UpdatedAt:      e.clock,
	})
	require.NoError(t, err)
	return u
}

func (e *engine) fruit(t *testing.T, owner *models.User, name string, ttl time.Duration) *models.Fruit {
	t.Helper()
	f, err := e.fruits.Create(context.Background(), models.FruitCreate{
		UserID:            owner.ID,
		Name:              name,
		Price:             100,
		ExpirationSeconds: int(ttl / time.Second),
	})
	require.NoError(t, err)
	return f
}

// stored returns the raw row for id, or nil, bypassing expiration.
func (e *engine) stored(t *testing.T, id string) *models.Fruit {
	t.Helper()
	rows, err := e.rm.Fruits(e.db).GetByIDs(context.Background(), []string{id})
	require.NoError(t, err)
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func (e *engine) bucketCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM buckets`).Scan(&n))
	return n
}

func fruitIDs(fruits []*models.Fruit) []string {
	out := make([]string, len(fruits))
	for i, f := range fruits {
		out[i] = f.ID
	}
	return out
}
