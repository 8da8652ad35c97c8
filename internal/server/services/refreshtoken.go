// Package services contains the token lifecycle and authentication logic.
// Services own transaction boundaries; repositories are vended per call by
// the repository manager, bound either to the pool or to an open transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// opaqueTokenBytes is the entropy of refresh and verification tokens.
const opaqueTokenBytes = 32

func newOpaqueToken() (string, error) {
	return common.MakeRandHexString(opaqueTokenBytes)
}

// RefreshTokenService issues, validates and revokes persisted refresh tokens.
type RefreshTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	log         logging.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

func NewRefreshTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *RefreshTokenService {
	return &RefreshTokenService{
		db:          db,
		repomanager: m,
		ttl:         cfg.RefreshTokenValidityDuration,
		log:         log.With("service", "refresh_tokens"),
		now:         time.Now,
		newToken:    newOpaqueToken,
	}
}

// Issue creates a token for userID valid for the configured TTL. The row is
// written and committed in a transaction of its own, so it survives whatever
// happens to the caller's unit of work afterwards.
func (s *RefreshTokenService) Issue(ctx context.Context, userID string) (*models.RefreshToken, error) {
	raw, err := s.newToken()
	if err != nil {
		s.log.Error(ctx, "refresh token generation failed", "error", err)
		return nil, common.Unavailable(err)
	}

	t := &models.RefreshToken{
		UserID:    userID,
		Token:     raw,
		ExpiresAt: s.now().Add(s.ttl),
		Revoked:   false,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.RefreshTokens(tx).Create(ctx, t)
	})
	if err != nil {
		s.log.Error(ctx, "refresh token not stored", "user_id", userID, "error", err)
		return nil, common.Unavailable(err)
	}
	return t, nil
}

// Validate returns the stored token if it may still be exchanged. Checks run
// in order: existence, revocation, expiry.
func (s *RefreshTokenService) Validate(ctx context.Context, token string) (*models.RefreshToken, error) {
	if token == "" {
		return nil, common.ErrRefreshTokenNotFound
	}

	t, err := s.repomanager.RefreshTokens(s.db).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenNotFound
		}
		s.log.Error(ctx, "refresh token lookup failed", "error", err)
		return nil, common.Unavailable(err)
	}

	if t.Revoked {
		return nil, common.ErrRefreshTokenRevoked
	}
	if !s.now().Before(t.ExpiresAt) {
		return nil, common.ErrRefreshTokenExpired
	}
	return t, nil
}

// Revoke marks token revoked. Revoking an already revoked token succeeds.
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrRefreshTokenNotFound
	}
	if err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrRefreshTokenNotFound
		}
		s.log.Error(ctx, "refresh token revoke failed", "error", err)
		return common.Unavailable(err)
	}
	return nil
}

// RevokeAll revokes every live token of userID.
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.repomanager.RefreshTokens(s.db).RevokeAllByUserID(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "refresh token bulk revoke failed", "user_id", userID, "error", err)
		return common.Unavailable(err)
	}
	s.log.Info(ctx, "refresh tokens revoked", "user_id", userID, "count", n)
	return nil
}

// DeleteAll removes every token of userID. Used for account deletion only.
func (s *RefreshTokenService) DeleteAll(ctx context.Context, userID string) error {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteAllByUserID(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "refresh token cleanup failed", "user_id", userID, "error", err)
		return common.Unavailable(err)
	}
	s.log.Info(ctx, "refresh tokens deleted", "user_id", userID, "count", n)
	return nil
}

// HandleUserDeleted is the user.deleted subscriber.
func (s *RefreshTokenService) HandleUserDeleted(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UserDeleted)
	if !ok {
		return errors.New("user.deleted: unexpected payload")
	}
	return s.DeleteAll(ctx, p.UserID)
}
