// Package verificationtokens persists the single-use tokens mailed to users
// to confirm account registration.
package verificationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository abstracts verification token storage.
//
// UpdateStatus only moves a PENDING token; a token already in a terminal
// state yields common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, t *models.VerificationToken) error
	FindByToken(ctx context.Context, token string) (*models.VerificationToken, error)
	UpdateStatus(ctx context.Context, id string, status models.TokenStatus) error
	VoidPendingByUserID(ctx context.Context, userID string) (int64, error)
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}
