// Package services holds the server engines: lazy fruit expiration, the
// bucket and fruit engines built on it, accounts and the optional sweep.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fruitful/internal/timex"
)

// ExpirationHandler decides whether a fruit is still alive and purges dead
// fruits as a side effect of reading them. Every read path that surfaces a
// fruit goes through it.
type ExpirationHandler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewExpirationHandler(db *sql.DB, m repomanager.RepositoryManager) *ExpirationHandler {
	return &ExpirationHandler{
		db:          db,
		repomanager: m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Now returns the current instant normalized for storage.
func (h *ExpirationHandler) Now() time.Time {
	return timex.Stamp(h.now())
}

// IsExpired reports expires_at <= now, comparing wall clocks as naive UTC.
func (h *ExpirationHandler) IsExpired(f *models.Fruit) bool {
	return !timex.NaiveUTC(f.ExpiresAt).After(timex.NaiveUTC(h.now().UTC()))
}

// ExpireIfNeeded deletes the expired fruits among fruits in one transaction
// and returns the survivors in input order. No transaction is opened when
// nothing is expired. Deleted fruits must not be used afterwards.
func (h *ExpirationHandler) ExpireIfNeeded(ctx context.Context, fruits []*models.Fruit) ([]*models.Fruit, error) {
	if len(fruits) == 0 {
		return nil, nil
	}

	alive := make([]*models.Fruit, 0, len(fruits))
	var dead []string
	for _, f := range fruits {
		if h.IsExpired(f) {
			dead = append(dead, f.ID)
		} else {
			alive = append(alive, f)
		}
	}

	if err := h.purge(ctx, dead); err != nil {
		return nil, err
	}
	return alive, nil
}

// GetAndExpireIfNeeded loads ids and splits them into live
// fruits and the IDs that are missing or expired. Expired fruits are deleted
// in one transaction. deadOrMissing lists each offending ID once, in request
// order.
func (h *ExpirationHandler) GetAndExpireIfNeeded(ctx context.Context, ids []string) (alive []*models.Fruit, deadOrMissing []string, err error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil, nil
	}

	found, err := h.repomanager.Fruits(h.db).GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading fruits: %w", err)
	}

	byID := make(map[string]*models.Fruit, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	var expired []string
	dead := make(map[string]bool)
	for _, id := range ids {
		f, ok := byID[id]
		switch {
		case !ok:
			deadOrMissing = append(deadOrMissing, id)
		case h.IsExpired(f):
			deadOrMissing = append(deadOrMissing, id)
			expired = append(expired, id)
			dead[id] = true
		}
	}

	for _, f := range found {
		if !dead[f.ID] {
			alive = append(alive, f)
		}
	}

	if err := h.purge(ctx, expired); err != nil {
		return nil, nil, err
	}
	return alive, deadOrMissing, nil
}

func (h *ExpirationHandler) purge(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, h.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return h.repomanager.Fruits(tx).DeleteByIDs(ctx, ids)
	})
	if err != nil {
		return fmt.Errorf("error purging expired fruits: %w", err)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
