// Package auth issues and parses access tokens and enforces per-request
// account status checks.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the access token payload. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role        string   `json:"role,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
}

// TokenCodec signs and verifies HS256 access tokens.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a TokenCodec.
type Option func(*TokenCodec)

// WithClock replaces time.Now as the source of issue and validation time.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(secret []byte, issuer string, ttl time.Duration, opts ...Option) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if ttl < time.Second {
		return nil, fmt.Errorf("access token ttl %s is shorter than one second", ttl)
	}
	c := &TokenCodec{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL is the lifetime of every issued token.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject valid from now until now+TTL.
func (c *TokenCodec) Issue(subject, role string, authorities []string) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role:        role,
		Authorities: authorities,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse verifies the signature and then the time claims of token and returns
// its claims. Failures are reported as access token business errors.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrAccessTokenMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapParseError(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrAccessTokenInvalid
	}
	return claims, nil
}

// ParseSubject returns the subject of a verified token.
func (c *TokenCodec) ParseSubject(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether token verifies and was issued to expectedSubject.
func (c *TokenCodec) IsValid(token, expectedSubject string) bool {
	subject, err := c.ParseSubject(token)
	return err == nil && subject == expectedSubject
}

// ExpiryOf reads the expiry claim without verifying the token. Callers must
// have validated the token already.
func (c *TokenCodec) ExpiryOf(token string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, mapParseError(err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, common.ErrAccessTokenInvalid
	}
	return claims.ExpiresAt.Time, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrAccessTokenMalformed.WithCause(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrAccessTokenSignatureInvalid.WithCause(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrAccessTokenExpired.WithCause(err)
	default:
		return common.ErrAccessTokenInvalid.WithCause(err)
	}
}
