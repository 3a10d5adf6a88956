package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
)

// BucketService enforces the bucket invariants: live members never exceed
// capacity and all belong to the bucket owner.
//
// Mutations run in two phases. Membership is resolved first through the
// ExpirationHandler, which commits its purge on its own. The checks and
// writes then run in a separate transaction that is rolled back on any
// violation, so a failed call still leaves expired fruits deleted.
type BucketService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	expiration  *ExpirationHandler
}

func NewBucketService(db *sql.DB, m repomanager.RepositoryManager, e *ExpirationHandler) *BucketService {
	return &BucketService{db: db, repomanager: m, expiration: e}
}

func (s *BucketService) Create(ctx context.Context, in models.BucketCreate) (*models.Bucket, error) {
	members, err := s.resolveMembers(ctx, in.FruitIDs)
	if err != nil {
		return nil, err
	}

	now := s.expiration.Now()
	bucket := &models.Bucket{
		UserID:    in.UserID,
		Capacity:  in.Capacity,
		Fruits:    members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkBucketInvariants(bucket); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.ensureUser(ctx, tx, bucket.UserID); err != nil {
			return err
		}
		if err := s.repomanager.Buckets(tx).Create(ctx, bucket); err != nil {
			return fmt.Errorf("error creating bucket: %w", err)
		}
		if len(members) == 0 {
			return nil
		}
		if err := s.repomanager.Fruits(tx).SetBucketMembers(ctx, bucket.ID, bucket.FruitIDs()); err != nil {
			return fmt.Errorf("error attaching fruits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attach(bucket)
	return bucket, nil
}

// Get returns the bucket with its live members, purging expired ones.
func (s *BucketService) Get(ctx context.Context, id string) (*models.Bucket, error) {
	bucket, err := s.repomanager.Buckets(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrBucketNotFound
		}
		return nil, fmt.Errorf("error loading bucket: %w", err)
	}

	members, err := s.repomanager.Fruits(s.db).ListByBucket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading bucket fruits: %w", err)
	}
	bucket.Fruits, err = s.expiration.ExpireIfNeeded(ctx, members)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// ListByOwner returns a page of the owner's buckets, each with live members.
func (s *BucketService) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*models.Bucket, error) {
	buckets, err := s.repomanager.Buckets(s.db).ListByUser(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing buckets: %w", err)
	}
	if len(buckets) == 0 {
		return buckets, nil
	}

	ids := make([]string, len(buckets))
	for i, b := range buckets {
		ids[i] = b.ID
	}
	members, err := s.repomanager.Fruits(s.db).ListByBuckets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading bucket fruits: %w", err)
	}
	alive, err := s.expiration.ExpireIfNeeded(ctx, members)
	if err != nil {
		return nil, err
	}

	byBucket := make(map[string][]*models.Fruit, len(buckets))
	for _, f := range alive {
		byBucket[*f.BucketID] = append(byBucket[*f.BucketID], f)
	}
	for _, b := range buckets {
		b.Fruits = byBucket[b.ID]
	}
	return buckets, nil
}

func (s *BucketService) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	n, err := s.repomanager.Buckets(s.db).CountByUser(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("error counting buckets: %w", err)
	}
	return n, nil
}

// Update applies patch to bucket id. Invariants are checked against the
// final state, and a violation leaves the stored bucket unchanged.
func (s *BucketService) Update(ctx context.Context, id string, patch models.BucketPatch) (*models.Bucket, error) {
	bucket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.FruitIDs != nil {
		members, err := s.resolveMembers(ctx, *patch.FruitIDs)
		if err != nil {
			return nil, err
		}
		bucket.Fruits = members
	}
	if patch.UserID != nil {
		if err := s.ensureUser(ctx, s.db, *patch.UserID); err != nil {
			return nil, err
		}
		bucket.UserID = *patch.UserID
	}
	if patch.Capacity != nil {
		bucket.Capacity = *patch.Capacity
	}
	if err := checkBucketInvariants(bucket); err != nil {
		return nil, err
	}
	bucket.UpdatedAt = s.expiration.Now()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if patch.UserID != nil {
			if err := s.ensureUser(ctx, tx, bucket.UserID); err != nil {
				return err
			}
		}
		if err := s.repomanager.Buckets(tx).Update(ctx, bucket); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrBucketNotFound
			}
			return fmt.Errorf("error updating bucket: %w", err)
		}
		if patch.FruitIDs == nil {
			return nil
		}
		if err := s.repomanager.Fruits(tx).SetBucketMembers(ctx, bucket.ID, bucket.FruitIDs()); err != nil {
			return fmt.Errorf("error replacing bucket fruits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attach(bucket)
	return bucket, nil
}

// Delete removes an empty bucket. Expired members are purged first and stay
// purged even when live members make the delete fail with ErrBucketNotEmpty.
func (s *BucketService) Delete(ctx context.Context, id string) (*models.Bucket, error) {
	bucket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(bucket.Fruits) > 0 {
		return nil, common.ErrBucketNotEmpty
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Buckets(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrBucketNotFound
			}
			return fmt.Errorf("error deleting bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// resolveMembers fails with *common.FruitsNotFoundError naming every ID that
// is missing or expired.
func (s *BucketService) resolveMembers(ctx context.Context, ids []string) ([]*models.Fruit, error) {
	alive, dead, err := s.expiration.GetAndExpireIfNeeded(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(dead) > 0 {
		return nil, &common.FruitsNotFoundError{IDs: dead}
	}
	return alive, nil
}

func (s *BucketService) ensureUser(ctx context.Context, tx dbx.DBTX, userID string) error {
	if _, err := s.repomanager.Users(tx).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}
	return nil
}

func checkBucketInvariants(b *models.Bucket) error {
	if len(b.Fruits) > b.Capacity {
		return common.ErrBucketCapacityExceeded
	}
	for _, f := range b.Fruits {
		if f.UserID != b.UserID {
			return common.ErrFruitOwnerMismatch
		}
	}
	return nil
}

// attach points the in-memory members at b after a successful write.
func attach(b *models.Bucket) {
	for _, f := range b.Fruits {
		id := b.ID
		f.BucketID = &id
	}
}
