// Package common defines shared constants and sentinel errors used across
// the Fruitful server layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Specialized not-found kinds. All of them match ErrorNotFound.
	ErrUserNotFound   = fmt.Errorf("user %w", ErrorNotFound)
	ErrFruitNotFound  = fmt.Errorf("fruit %w", ErrorNotFound)
	ErrBucketNotFound = fmt.Errorf("bucket %w", ErrorNotFound)

	// Bucket invariant violations.
	ErrFruitOwnerMismatch     = errors.New("fruit owner does not match bucket owner")
	ErrBucketCapacityExceeded = errors.New("bucket capacity exceeded")
	ErrBucketNotEmpty         = errors.New("bucket is not empty")
)

// FruitsNotFoundError reports the requested fruit IDs that are missing or
// already expired. It matches ErrFruitNotFound.
type FruitsNotFoundError struct {
	IDs []string
}

func (e *FruitsNotFoundError) Error() string {
	return fmt.Sprintf("fruits not found: %s", strings.Join(e.IDs, ", "))
}

func (e *FruitsNotFoundError) Unwrap() error {
	return ErrFruitNotFound
}
