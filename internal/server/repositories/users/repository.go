// Package users declares the read side of the user directory consumed by
// authentication, plus the activation write performed on email confirmation.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// FindByID returns the account snapshot or common.ErrorNotFound.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByIdentifier looks an account up by its login identifier (email),
	// case-insensitively. Returns common.ErrorNotFound when absent.
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	// Enable marks the account enabled and its email verified.
	Enable(ctx context.Context, id string) error
}
