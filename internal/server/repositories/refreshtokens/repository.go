// Package refreshtokens stores the opaque refresh tokens issued at login.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type Repository interface {
	// Create stores token, assigning an ID when it has none.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes every session of userID.
	DeleteByUser(ctx context.Context, userID string) error
}
