// Package users declares and implements the account store.
package users

import (
	"context"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type Repository interface {
	// Create inserts user, assigning an ID when it has none. A taken email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	// Update writes every mutable column of user.
	Update(ctx context.Context, user *models.User) error
}
