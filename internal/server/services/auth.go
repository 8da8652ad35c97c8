package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// PasswordVerifier compares a plaintext secret with a stored hash.
type PasswordVerifier interface {
	Matches(password, encoded string) bool
}

// LoginResult is returned by a successful login. ExpiresIn is the configured
// lifetime of AccessToken.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *models.User
}

type RefreshResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Principal is the identity attached to an authenticated request.
type Principal struct {
	UserID      string
	Identifier  string
	Role        string
	Authorities []string
	// ExpiresIn is what is left of the presented access token, in whole seconds.
	ExpiresIn   time.Duration
}

// dummyHash is verified against when the identifier is unknown, so both
// invalid-credential paths do the same work.
var dummyHash = sync.OnceValue(func() string {
	h, err := cryptox.HashPassword("gophauth-no-such-user")
	if err != nil {
		return ""
	}
	return h
})

// AuthService orchestrates login, refresh, logout and per-request
// authentication.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	refresh     *RefreshTokenService
	verifier    PasswordVerifier
	log         logging.Logger
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec,
	refresh *RefreshTokenService, verifier PasswordVerifier, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		codec:       codec,
		refresh:     refresh,
		verifier:    verifier,
		log:         log.With("service", "auth"),
		now:         time.Now,
	}
}

// Login checks the credentials first and only then reports account status,
// so a caller without the password learns nothing about the account.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	u, err := s.repomanager.Users(s.db).FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.verifier.Matches(password, dummyHash())
			s.log.Info(ctx, "login rejected", "reason", common.CodeInvalidCredentials)
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.Unavailable(err)
	}

	if !s.verifier.Matches(password, u.SecretHash) {
		s.log.Info(ctx, "login rejected", "reason", common.CodeInvalidCredentials)
		return nil, common.ErrInvalidCredentials
	}

	if err := auth.CheckAccountStatus(u); err != nil {
		s.log.Info(ctx, "login rejected", "user_id", u.ID, "reason", common.CodeOf(err))
		return nil, err
	}

	access, expiresIn, err := s.issueAccess(u)
	if err != nil {
		s.log.Error(ctx, "access token not signed", "user_id", u.ID, "error", err)
		return nil, common.Unavailable(err)
	}

	rt, err := s.refresh.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login succeeded", "user_id", u.ID)
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: rt.Token,
		ExpiresIn:    expiresIn,
		User:         u,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The account is
// reloaded so status changes and role changes since login take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	rt, err := s.refresh.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenNotFound
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.Unavailable(err)
	}

	if err := auth.CheckAccountStatus(u); err != nil {
		s.log.Info(ctx, "refresh rejected", "user_id", u.ID, "reason", common.CodeOf(err))
		return nil, err
	}

	access, expiresIn, err := s.issueAccess(u)
	if err != nil {
		s.log.Error(ctx, "access token not signed", "user_id", u.ID, "error", err)
		return nil, common.Unavailable(err)
	}
	return &RefreshResult{AccessToken: access, ExpiresIn: expiresIn}, nil
}

// Logout revokes refreshToken. A missing or unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.refresh.Revoke(ctx, refreshToken)
	if errors.Is(err, common.ErrRefreshTokenNotFound) {
		return nil
	}
	return err
}

// LogoutAll revokes every refresh token of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.refresh.RevokeAll(ctx, userID)
}

// Authenticate resolves an access token to the current principal. The token
// must verify, its subject must still exist and the account must pass the
// status checks as of now.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	subject, err := s.codec.ParseSubject(token)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccessTokenInvalid
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.Unavailable(err)
	}

	if !s.codec.IsValid(token, u.ID) {
		return nil, common.ErrAccessTokenInvalid
	}

	if err := auth.CheckAccountStatus(u); err != nil {
		return nil, err
	}

	exp, err := s.codec.ExpiryOf(token)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID:      u.ID,
		Identifier:  u.Identifier,
		Role:        u.Role,
		Authorities: auth.AuthoritiesFor(u.Role),
		ExpiresIn:   exp.Sub(s.now()).Truncate(time.Second),
	}, nil
}

func (s *AuthService) issueAccess(u *models.User) (string, time.Duration, error) {
	token, err := s.codec.Issue(u.ID, u.Role, auth.AuthoritiesFor(u.Role))
	if err != nil {
		return "", 0, err
	}
	return token, s.codec.TTL(), nil
}
