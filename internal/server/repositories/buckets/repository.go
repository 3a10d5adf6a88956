// Package buckets stores bucket rows. Membership lives on the fruits table.
package buckets

import (
	"context"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, bucket *models.Bucket) error
	GetByID(ctx context.Context, id string) (*models.Bucket, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Bucket, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, bucket *models.Bucket) error
	Delete(ctx context.Context, id string) error
}
