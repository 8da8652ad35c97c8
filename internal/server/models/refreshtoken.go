package models

import "time"

// RefreshToken is a persisted opaque credential. It is only ever mutated to
// flip Revoked to true.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
