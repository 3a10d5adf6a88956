package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fruitful/internal/common"
)

// Fruit is a perishable record. It is live while now < ExpiresAt.
type Fruit struct {
	ID        string
	Name      string
	Price     int64
	UserID    string
	BucketID  *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// InBucket reports whether the fruit is assigned to bucketID.
func (f *Fruit) InBucket(bucketID string) bool {
	return f.BucketID != nil && *f.BucketID == bucketID
}

type FruitCreate struct {
	UserID            string
	Name              string
	Price             int64
	ExpirationSeconds int
	BucketID          *string
}

// FruitPatch changes only the non-nil fields. BucketSet tells apart
// "bucket not mentioned" from "bucket cleared" (BucketSet with nil BucketID).
type FruitPatch struct {
	Name              *string
	Price             *int64
	ExpirationSeconds *int
	BucketSet         bool
	BucketID          *string
}

func (f FruitCreate) Validate() error {
	if err := validateFruitName(f.Name); err != nil {
		return err
	}
	if err := validatePrice(f.Price); err != nil {
		return err
	}
	return validateExpiration(f.ExpirationSeconds)
}

func (p FruitPatch) Validate() error {
	if p.Name != nil {
		if err := validateFruitName(*p.Name); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return err
		}
	}
	if p.ExpirationSeconds != nil {
		return validateExpiration(*p.ExpirationSeconds)
	}
	return nil
}

func validateFruitName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < common.MinFruitNameLength || n > common.MaxFruitNameLength {
		return fmt.Errorf("%w: name must be %d..%d characters", common.ErrorValidation,
			common.MinFruitNameLength, common.MaxFruitNameLength)
	}
	return nil
}

func validatePrice(cents int64) error {
	if cents < common.MinFruitPriceCents || cents > common.MaxFruitPriceCents {
		return fmt.Errorf("%w: price must be %d..%d cents", common.ErrorValidation,
			common.MinFruitPriceCents, common.MaxFruitPriceCents)
	}
	return nil
}

func validateExpiration(seconds int) error {
	if seconds < common.MinFruitExpirationSeconds || seconds > common.MaxFruitExpirationSeconds {
		return fmt.Errorf("%w: expiration must be %d..%d seconds", common.ErrorValidation,
			common.MinFruitExpirationSeconds, common.MaxFruitExpirationSeconds)
	}
	return nil
}
