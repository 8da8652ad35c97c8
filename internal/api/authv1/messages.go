// Package authv1 defines the gophauth.v1.AuthService gRPC contract: request
// and response messages, the service descriptor, a client stub and the JSON
// codec the messages travel in.
package authv1

import "time"

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type UserProfile struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	FullName   string `json:"fullName,omitempty"`
	Role       string `json:"role"`
}

// LoginResponse carries the token pair. ExpiresIn is the access token's
// remaining lifetime in seconds.
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *UserProfile `json:"user,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ConfirmRegistrationRequest struct {
	Token      string `json:"token"`
	Identifier string `json:"identifier"`
}

type ResendVerificationRequest struct {
	Identifier string `json:"identifier"`
}

type ResendVerificationResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UserID      string   `json:"userId"`
	Identifier  string   `json:"identifier"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
	// ExpiresIn is the remaining lifetime of the access token, in seconds.
	ExpiresIn   int64    `json:"expiresIn"`
}
