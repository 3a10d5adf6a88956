package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fruitful/internal/logging"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/robfig/cron/v3"
)

const defaultSweepPageSize = 500

// Sweeper bounds storage by deleting expired fruits nobody has read. It
// applies the same IsExpired rule as the read paths and does not change
// what they observe.
type Sweeper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	expiration  *ExpirationHandler
	logger      logging.Logger
	pageSize    int
}

func NewSweeper(db *sql.DB, m repomanager.RepositoryManager, e *ExpirationHandler, l logging.Logger) *Sweeper {
	return &Sweeper{db: db, repomanager: m, expiration: e, logger: l, pageSize: defaultSweepPageSize}
}

// Sweep walks all fruits in ID order and purges the expired ones page by
// page. It returns how many fruits were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	repo := s.repomanager.Fruits(s.db)
	deleted := 0
	after := ""

	for {
		page, err := repo.ListPage(ctx, after, s.pageSize)
		if err != nil {
			return deleted, fmt.Errorf("error listing fruits: %w", err)
		}
		if len(page) == 0 {
			return deleted, nil
		}

		alive, err := s.expiration.ExpireIfNeeded(ctx, page)
		if err != nil {
			return deleted, err
		}
		deleted += len(page) - len(alive)

		if len(page) < s.pageSize {
			return deleted, nil
		}
		after = page[len(page)-1].ID
	}
}

// Run sweeps on the given cron schedule until ctx is cancelled. Errors are
// logged and the next tick retries.
func (s *Sweeper) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error(ctx, "sweep failed", "error", err, "deleted", n)
			return
		}
		s.logger.Info(ctx, "sweep finished", "deleted", n)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.logger.Info(ctx, "Starting sweeper", "schedule", schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
