package verificationtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_DefaultsToPending(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	expires := time.Now().Add(24 * time.Hour)
	created := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+verification_tokens\s*\(user_id,\s*token,\s*expires_at,\s*status\).*RETURNING\s+id,\s*created_at`).
		WithArgs("u1", "vt", expires, "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("v-1", created))

	tok := &models.VerificationToken{UserID: "u1", Token: "vt", ExpiresAt: expires}
	require.NoError(t, repo.Create(context.Background(), tok))

	assert.Equal(t, "v-1", tok.ID)
	assert.Equal(t, models.TokenStatusPending, tok.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+verification_tokens`).WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), &models.VerificationToken{UserID: "u1", Token: "vt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error performing sql request")
}

func TestFindByToken(t *testing.T) {
	q := `(?s)SELECT\s+id,\s*user_id,\s*token,\s*expires_at,\s*status,\s*created_at\s+FROM\s+verification_tokens\s+WHERE\s+token\s*=\s*\$1`

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		expires := time.Now().Add(time.Hour)
		mock.ExpectQuery(q).WithArgs("vt").WillReturnRows(
			sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "status", "created_at"}).
				AddRow("v-1", "u1", "vt", expires, "VOIDED", time.Now()))

		got, err := repo.FindByToken(context.Background(), "vt")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, models.TokenStatusVoided, got.Status)
		assert.True(t, got.ExpiresAt.Equal(expires))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("nope").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByToken(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("vt").WillReturnError(errors.New("conn reset"))

		_, err := repo.FindByToken(context.Background(), "vt")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
		assert.Contains(t, err.Error(), "conn reset")
	})
}

func TestUpdateStatus(t *testing.T) {
	q := `(?s)UPDATE\s+verification_tokens\s+SET\s+status\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*'PENDING'`

	t.Run("pending row moves", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("v-1", "VERIFIED").WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(context.Background(), "v-1", models.TokenStatusVerified))
	})

	t.Run("terminal row untouched", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("v-1", "EXPIRED").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), "v-1", models.TokenStatusExpired)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("v-1", "VOIDED").WillReturnError(errors.New("boom"))

		err := repo.UpdateStatus(context.Background(), "v-1", models.TokenStatusVoided)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error")
	})
}

func TestVoidPendingByUserID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE\s+verification_tokens\s+SET\s+status\s*=\s*'VOIDED'\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+status\s*=\s*'PENDING'`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.VoidPendingByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPurgeStale(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	cutoff := time.Now()
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+verification_tokens\s+WHERE\s+status\s+IN\s+\('EXPIRED',\s*'VOIDED'\)\s+AND\s+expires_at\s*<\s*\$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.PurgeStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
