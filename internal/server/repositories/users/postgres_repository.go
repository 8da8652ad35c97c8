package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const selectUser = `
		SELECT id, email, full_name, password_hash, role, enabled,
		       account_non_expired, account_non_locked, credentials_non_expired,
		       email_verified, created_at
		FROM users
	`

// PostgresRepository reads accounts over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return r.findOne(ctx, selectUser+`WHERE lower(email) = lower($1)`, identifier)
}

func (r *PostgresRepository) Enable(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET enabled = TRUE, email_verified = TRUE
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Identifier, &u.FullName, &u.SecretHash, &u.Role, &u.Enabled,
		&u.AccountNonExpired, &u.AccountNonLocked, &u.CredentialsNonExpired,
		&u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
