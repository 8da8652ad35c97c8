// Package common contains shared constants and sentinel errors used across
// GophAuth components.
package common

const (
	// AuthorizationHeaderName is the gRPC metadata key carrying "Bearer <token>".
	AuthorizationHeaderName = "authorization"

	// AccessTokenHeaderName is the legacy metadata key carrying a bare access token.
	AccessTokenHeaderName = "access_token"

	// BearerPrefix precedes the access token in the authorization header.
	BearerPrefix = "Bearer "
)
