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

// VerificationService drives the registration confirmation token lifecycle:
//
//	PENDING -> VERIFIED | VOIDED | EXPIRED
//
// Expiry is detected lazily, on a validation attempt.
type VerificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	publisher   events.Publisher
	log         logging.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

func NewVerificationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, pub events.Publisher, log logging.Logger) *VerificationService {
	return &VerificationService{
		db:          db,
		repomanager: m,
		ttl:         cfg.VerificationTokenValidityDuration,
		publisher:   pub,
		log:         log.With("service", "verification_tokens"),
		now:         time.Now,
		newToken:    newOpaqueToken,
	}
}

// Issue stores a PENDING token for userID and requests its delivery.
func (s *VerificationService) Issue(ctx context.Context, userID string) (*models.VerificationToken, error) {
	t, err := s.create(ctx, s.db, userID)
	if err != nil {
		s.log.Error(ctx, "verification token not stored", "user_id", userID, "error", err)
		return nil, common.Unavailable(err)
	}
	s.requestDelivery(ctx, t)
	return t, nil
}

// HandleUserCreated is the user.created subscriber: every new registration
// gets its first confirmation token.
func (s *VerificationService) HandleUserCreated(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UserCreated)
	if !ok {
		return errors.New("user.created: unexpected payload")
	}
	_, err := s.Issue(ctx, p.UserID)
	return err
}

// VoidPending voids every PENDING token of userID.
func (s *VerificationService) VoidPending(ctx context.Context, userID string) error {
	if _, err := s.repomanager.VerificationTokens(s.db).VoidPendingByUserID(ctx, userID); err != nil {
		s.log.Error(ctx, "verification tokens not voided", "user_id", userID, "error", err)
		return common.Unavailable(err)
	}
	return nil
}

// Reissue voids the pending tokens of userID and issues a replacement in one
// transaction, so no reader ever sees two PENDING tokens. Delivery is
// requested once the transaction has committed.
func (s *VerificationService) Reissue(ctx context.Context, userID string) (*models.VerificationToken, error) {
	t, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.VerificationToken, error) {
		n, err := s.repomanager.VerificationTokens(tx).VoidPendingByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "pending verification tokens voided", "user_id", userID, "count", n)

		return s.create(ctx, tx, userID)
	})
	if err != nil {
		s.log.Error(ctx, "verification token reissue failed", "user_id", userID, "error", err)
		return nil, common.Unavailable(err)
	}
	s.requestDelivery(ctx, t)
	return t, nil
}

// Resend reissues a token for the account registered under identifier and
// returns the expiry of the new link. Unknown and already verified accounts
// get the same answer as a pending one, and nothing is sent to them.
func (s *VerificationService) Resend(ctx context.Context, identifier string) (time.Time, error) {
	expiresAt := s.now().Add(s.ttl)

	u, err := s.repomanager.Users(s.db).FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "resend skipped", "reason", common.CodeUserNotFound)
			return expiresAt, nil
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return time.Time{}, common.Unavailable(err)
	}
	if u.EmailVerified {
		s.log.Info(ctx, "resend skipped", "user_id", u.ID, "reason", common.CodeVerificationTokenAlreadyUsed)
		return expiresAt, nil
	}

	t, err := s.Reissue(ctx, u.ID)
	if err != nil {
		return time.Time{}, err
	}
	return t.ExpiresAt, nil
}

// Validate checks token on behalf of userID and marks it VERIFIED.
//
// Checks run in order: existence, owner, VOIDED, VERIFIED, expiry. An expired
// PENDING token is moved to EXPIRED and that transition is committed even
// though the call fails.
func (s *VerificationService) Validate(ctx context.Context, token, userID string) error {
	return s.verify(ctx, token, func(context.Context, dbx.DBTX) (string, error) {
		return userID, nil
	}, nil)
}

// Confirm validates token for the account registered under identifier and
// enables the account in the same transaction. An unknown identifier fails
// the owner check.
func (s *VerificationService) Confirm(ctx context.Context, token, identifier string) error {
	var userID string
	resolve := func(ctx context.Context, tx dbx.DBTX) (string, error) {
		u, err := s.repomanager.Users(tx).FindByIdentifier(ctx, identifier)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", nil
			}
			return "", err
		}
		userID = u.ID
		return u.ID, nil
	}
	enable := func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Enable(ctx, userID)
	}

	if err := s.verify(ctx, token, resolve, enable); err != nil {
		return err
	}
	s.log.Info(ctx, "account confirmed", "user_id", userID)
	return nil
}

// verify runs the validation state machine inside one transaction. resolve
// yields the claimed owner; onVerified runs in the same transaction after the
// VERIFIED transition.
func (s *VerificationService) verify(
	ctx context.Context,
	token string,
	resolve func(context.Context, dbx.DBTX) (string, error),
	onVerified func(context.Context, dbx.DBTX) error,
) error {
	if token == "" {
		return common.ErrVerificationTokenNotFound
	}

	var verdict error
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.VerificationTokens(tx)

		t, err := repo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				verdict = common.ErrVerificationTokenNotFound
				return nil
			}
			return err
		}

		owner, err := resolve(ctx, tx)
		if err != nil {
			return err
		}
		if owner == "" || owner != t.UserID {
			verdict = common.ErrVerificationTokenUserMismatch
			return nil
		}

		if t.Status.Terminal() {
			verdict = statusVerdict(t.Status)
			return nil
		}

		if t.ExpiredAt(s.now()) {
			if err := repo.UpdateStatus(ctx, t.ID, models.TokenStatusExpired); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			verdict = common.ErrVerificationTokenExpired
			return nil
		}

		if err := repo.UpdateStatus(ctx, t.ID, models.TokenStatusVerified); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// lost a race with a void or another confirmation
				verdict = s.terminalVerdict(ctx, tx, token)
				return nil
			}
			return err
		}

		if onVerified != nil {
			return onVerified(ctx, tx)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "verification failed unexpectedly", "error", err)
		return common.Unavailable(err)
	}
	if verdict != nil {
		s.log.Info(ctx, "verification rejected", "reason", common.CodeOf(verdict))
	}
	return verdict
}

func (s *VerificationService) terminalVerdict(ctx context.Context, tx dbx.DBTX, token string) error {
	t, err := s.repomanager.VerificationTokens(tx).FindByToken(ctx, token)
	if err != nil {
		return common.ErrVerificationTokenNotFound
	}
	return statusVerdict(t.Status)
}

// statusVerdict maps a terminal status to the error a validation attempt
// reports for it.
func statusVerdict(st models.TokenStatus) error {
	switch st {
	case models.TokenStatusVerified:
		return common.ErrVerificationTokenAlreadyUsed
	case models.TokenStatusExpired:
		return common.ErrVerificationTokenExpired
	default:
		return common.ErrVerificationTokenVoided
	}
}

func (s *VerificationService) create(ctx context.Context, db dbx.DBTX, userID string) (*models.VerificationToken, error) {
	raw, err := s.newToken()
	if err != nil {
		return nil, err
	}
	t := &models.VerificationToken{
		UserID:    userID,
		Token:     raw,
		ExpiresAt: s.now().Add(s.ttl),
		Status:    models.TokenStatusPending,
	}
	if err := s.repomanager.VerificationTokens(db).Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *VerificationService) requestDelivery(ctx context.Context, t *models.VerificationToken) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.NewVerificationRequested(t.UserID, t.Token, t.ExpiresAt))
}
