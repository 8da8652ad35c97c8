package models

import "time"

// User is the authentication snapshot of an account: identity, stored
// secret hash, role and the four account-status flags re-checked on every
// authenticated request.
type User struct {
	ID                    string
	Identifier            string
	FullName              string
	SecretHash            string
	Role                  string
	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	EmailVerified         bool
	CreatedAt             time.Time
}
