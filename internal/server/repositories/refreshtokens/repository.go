// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores t and fills in its generated ID and CreatedAt.
	Create(ctx context.Context, t *models.RefreshToken) error

	// FindByToken looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke sets revoked=true. Revoking an already revoked token succeeds;
	// an unknown token yields common.ErrorNotFound.
	Revoke(ctx context.Context, token string) error

	// RevokeAllByUserID revokes every non-revoked token of the user and
	// returns how many were flipped.
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteAllByUserID hard-deletes every token of the user.
	DeleteAllByUserID(ctx context.Context, userID string) (int64, error)

	// PurgeStale deletes tokens that are revoked or expired and were created
	// before the cutoff.
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}
