package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/common"
)

// Bucket is a capacity-bounded container of fruits owned by one user.
// Fruits holds the live members as last loaded by the bucket engine.
type Bucket struct {
	ID        string
	UserID    string
	Capacity  int
	Fruits    []*Fruit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FruitIDs returns the IDs of the loaded members in order.
func (b *Bucket) FruitIDs() []string {
	ids := make([]string, len(b.Fruits))
	for i, f := range b.Fruits {
		ids[i] = f.ID
	}
	return ids
}

type BucketCreate struct {
	UserID   string
	Capacity int
	FruitIDs []string
}

// BucketPatch changes only the non-nil fields. A non-nil FruitIDs replaces
// the whole membership, an empty slice clears it.
type BucketPatch struct {
	Capacity *int
	UserID   *string
	FruitIDs *[]string
}

func (b BucketCreate) Validate() error {
	return validateCapacity(b.Capacity)
}

func (p BucketPatch) Validate() error {
	if p.Capacity != nil {
		return validateCapacity(*p.Capacity)
	}
	return nil
}

func validateCapacity(c int) error {
	if c < common.MinBucketCapacity || c > common.MaxBucketCapacity {
		return fmt.Errorf("%w: capacity must be %d..%d", common.ErrorValidation,
			common.MinBucketCapacity, common.MaxBucketCapacity)
	}
	return nil
}
