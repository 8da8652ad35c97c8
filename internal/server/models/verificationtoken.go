package models

import "time"

// TokenStatus is the lifecycle state of a verification token. PENDING is the
// only non-terminal state.
type TokenStatus string

const (
	TokenStatusPending  TokenStatus = "PENDING"
	TokenStatusVerified TokenStatus = "VERIFIED"
	TokenStatusVoided   TokenStatus = "VOIDED"
	TokenStatusExpired  TokenStatus = "EXPIRED"
)

// Terminal reports whether no transition may leave s.
func (s TokenStatus) Terminal() bool {
	return s != TokenStatusPending
}

type VerificationToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Status    TokenStatus
	CreatedAt time.Time
}

// ExpiredAt reports whether the token's confirmation window has closed at now.
func (t *VerificationToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
