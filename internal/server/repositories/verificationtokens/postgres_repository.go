package verificationtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.VerificationToken) error {
	if t.Status == "" {
		t.Status = models.TokenStatusPending
	}
	query := `
		INSERT INTO verification_tokens (user_id, token, expires_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, t.UserID, t.Token, t.ExpiresAt, string(t.Status)).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, status, created_at
		FROM verification_tokens
		WHERE token = $1
	`
	var (
		t      models.VerificationToken
		status string
	)
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Status = models.TokenStatus(status)
	return &t, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.TokenStatus) error {
	query := `
		UPDATE verification_tokens
		SET status = $2
		WHERE id = $1 AND status = 'PENDING'
	`
	n, err := r.exec(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) VoidPendingByUserID(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE verification_tokens
		SET status = 'VOIDED'
		WHERE user_id = $1 AND status = 'PENDING'
	`
	return r.exec(ctx, query, userID)
}

// PurgeStale removes voided or expired tokens whose window closed before the cutoff.
// VERIFIED rows are kept as an audit trail.
func (r *PostgresRepository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE status IN ('EXPIRED', 'VOIDED') AND expires_at < $1
	`
	return r.exec(ctx, query, before)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
