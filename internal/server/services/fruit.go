package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
)

// FruitService manages the fruit lifecycle. Reads resolve through the
// ExpirationHandler, so a dead fruit is deleted the first time it is seen.
type FruitService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	expiration  *ExpirationHandler
	buckets     *BucketService
}

func NewFruitService(db *sql.DB, m repomanager.RepositoryManager, e *ExpirationHandler, b *BucketService) *FruitService {
	return &FruitService{db: db, repomanager: m, expiration: e, buckets: b}
}

// Create stores a fruit expiring ExpirationSeconds from now. A target bucket
// must belong to the same owner. Capacity is not checked here.
func (s *FruitService) Create(ctx context.Context, in models.FruitCreate) (*models.Fruit, error) {
	now := s.expiration.Now()
	fruit := &models.Fruit{
		Name:      in.Name,
		Price:     in.Price,
		UserID:    in.UserID,
		BucketID:  in.BucketID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(in.ExpirationSeconds) * time.Second),
		UpdatedAt: now,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).GetByID(ctx, fruit.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if fruit.BucketID != nil {
			bucket, err := s.repomanager.Buckets(tx).GetByID(ctx, *fruit.BucketID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrBucketNotFound
				}
				return fmt.Errorf("error loading bucket: %w", err)
			}
			if bucket.UserID != fruit.UserID {
				return common.ErrFruitOwnerMismatch
			}
		}
		if err := s.repomanager.Fruits(tx).Create(ctx, fruit); err != nil {
			return fmt.Errorf("error creating fruit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fruit, nil
}

// Get returns common.ErrFruitNotFound for a missing or expired fruit.
func (s *FruitService) Get(ctx context.Context, id string) (*models.Fruit, error) {
	alive, _, err := s.expiration.GetAndExpireIfNeeded(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(alive) == 0 {
		return nil, common.ErrFruitNotFound
	}
	return alive[0], nil
}

// Owner returns the owner of the stored fruit id without applying
// expiration. It is meant for authorization checks only.
func (s *FruitService) Owner(ctx context.Context, id string) (string, error) {
	found, err := s.repomanager.Fruits(s.db).GetByIDs(ctx, []string{id})
	if err != nil {
		return "", fmt.Errorf("error loading fruit: %w", err)
	}
	if len(found) == 0 {
		return "", common.ErrFruitNotFound
	}
	return found[0].UserID, nil
}

func (s *FruitService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Fruit, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	fruits, err := s.repomanager.Fruits(s.db).ListByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing fruits: %w", err)
	}
	return s.expiration.ExpireIfNeeded(ctx, fruits)
}

// ListByBucket returns the bucket's members. The bucket lookup already purged
// expired members, so the second read is not filtered again.
func (s *FruitService) ListByBucket(ctx context.Context, bucketID string) ([]*models.Fruit, error) {
	if _, err := s.buckets.Get(ctx, bucketID); err != nil {
		return nil, err
	}
	fruits, err := s.repomanager.Fruits(s.db).ListByBucket(ctx, bucketID)
	if err != nil {
		return nil, fmt.Errorf("error listing bucket fruits: %w", err)
	}
	return fruits, nil
}

// Update applies patch to fruit id. When a new expiration puts expires_at in
// the past the fruit is deleted and common.ErrFruitNotFound is returned.
func (s *FruitService) Update(ctx context.Context, id string, patch models.FruitPatch) (*models.Fruit, error) {
	fruit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.ExpirationSeconds != nil {
		fruit.ExpiresAt = fruit.CreatedAt.Add(time.Duration(*patch.ExpirationSeconds) * time.Second)
		if s.expiration.IsExpired(fruit) {
			if _, err := s.expiration.ExpireIfNeeded(ctx, []*models.Fruit{fruit}); err != nil {
				return nil, err
			}
			return nil, common.ErrFruitNotFound
		}
	}
	if patch.Name != nil {
		fruit.Name = *patch.Name
	}
	if patch.Price != nil {
		fruit.Price = *patch.Price
	}

	if patch.BucketSet {
		switch {
		case patch.BucketID == nil:
			fruit.BucketID = nil
		case !fruit.InBucket(*patch.BucketID):
			bucket, err := s.buckets.Get(ctx, *patch.BucketID)
			if err != nil {
				return nil, err
			}
			if len(bucket.Fruits)+1 > bucket.Capacity {
				return nil, common.ErrBucketCapacityExceeded
			}
			if bucket.UserID != fruit.UserID {
				return nil, common.ErrFruitOwnerMismatch
			}
			bucketID := bucket.ID
			fruit.BucketID = &bucketID
		}
	}
	fruit.UpdatedAt = s.expiration.Now()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Fruits(tx).Update(ctx, fruit); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrFruitNotFound
			}
			return fmt.Errorf("error updating fruit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fruit, nil
}

// Delete removes fruit id unconditionally. It returns the prior state when
// the fruit was live, and (nil, nil) when it had already expired.
func (s *FruitService) Delete(ctx context.Context, id string) (*models.Fruit, error) {
	found, err := s.repomanager.Fruits(s.db).GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("error loading fruit: %w", err)
	}
	if len(found) == 0 {
		return nil, common.ErrFruitNotFound
	}
	fruit := found[0]
	expired := s.expiration.IsExpired(fruit)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Fruits(tx).DeleteByIDs(ctx, []string{id})
	})
	if err != nil {
		return nil, fmt.Errorf("error deleting fruit: %w", err)
	}

	if expired {
		return nil, nil
	}
	return fruit, nil
}
