// Package fruits stores perishable fruit rows. It applies no expiration
// rules of its own; callers decide what is live.
package fruits

import (
	"context"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, fruit *models.Fruit) error
	// GetByIDs returns the rows that exist among ids. Missing IDs are simply
	// absent from the result. Long ID lists are fetched in batches.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Fruit, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Fruit, error)
	ListByBucket(ctx context.Context, bucketID string) ([]*models.Fruit, error)
	ListByBuckets(ctx context.Context, bucketIDs []string) ([]*models.Fruit, error)
	// ListPage walks all fruits in ID order, starting after afterID.
	ListPage(ctx context.Context, afterID string, limit int) ([]*models.Fruit, error)
	Update(ctx context.Context, fruit *models.Fruit) error
	// DeleteByIDs removes ids, in batches when the list is long.
	DeleteByIDs(ctx context.Context, ids []string) error
	// SetBucketMembers detaches every current member of bucketID, then
	// attaches ids to it.
	SetBucketMembers(ctx context.Context, bucketID string, ids []string) error
}
