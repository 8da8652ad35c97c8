package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier treats "hash:<password>" as the hash of password.
type fakeVerifier struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeVerifier) Matches(password, encoded string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, encoded)
	return encoded == "hash:"+password
}

type authFixture struct {
	store    *memStore
	clk      *testClock
	verifier *fakeVerifier
	codec    *auth.TokenCodec
	refresh  *RefreshTokenService
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := newMemStore()
	clk := newClock(t0)
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.SecretKey), "gophauth", cfg.AccessTokenValidityDuration, auth.WithClock(clk.Now))
	require.NoError(t, err)

	db := newTestDB(t)
	refresh := NewRefreshTokenService(db, &fakeManager{store}, cfg, logging.Nop())
	refresh.now = clk.Now

	verifier := &fakeVerifier{}
	svc := NewAuthService(db, &fakeManager{store}, codec, refresh, verifier, logging.Nop())
	svc.now = clk.Now

	u := activeUser("u1", "alice@example.com")
	u.SecretHash = "hash:correct-horse"
	u.Role = auth.RoleManager
	store.addUser(u)

	return &authFixture{store: store, clk: clk, verifier: verifier, codec: codec, refresh: refresh, svc: svc}
}

func TestLogin_ExpiresInIsFullTTL(t *testing.T) {
	f := newAuthFixture(t)
	f.clk.Advance(750 * time.Millisecond)

	res, err := f.svc.Login(context.Background(), "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, res.ExpiresIn)

	refreshed, err := f.svc.Refresh(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, refreshed.ExpiresIn)
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Login(context.Background(), "alice@example.com", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, res.ExpiresIn)
	assert.Equal(t, "u1", res.User.ID)

	claims, err := f.codec.Parse(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, auth.RoleManager, claims.Role)
	assert.Equal(t, auth.AuthoritiesFor(auth.RoleManager), claims.Authorities)

	rt := f.store.refreshToken(res.RefreshToken)
	assert.Equal(t, "u1", rt.UserID)
	assert.False(t, rt.Revoked)
}

func TestLogin_ScenarioC(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	f.store.setUser("u1", func(u *models.User) { u.Enabled = false })

	_, err = f.svc.Login(ctx, "alice@example.com", "correct-horse")
	assert.ErrorIs(t, err, common.ErrAccountDisabled)
	assert.NotEqual(t, common.CodeInvalidCredentials, common.CodeOf(err))
}

func TestLogin_StatusHiddenBehindCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.store.setUser("u1", func(u *models.User) { u.AccountNonLocked = false })

	_, err := f.svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "alice@example.com", "correct-horse")
	assert.ErrorIs(t, err, common.ErrAccountLocked)
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, errUnknown := f.svc.Login(context.Background(), "nobody@example.com", "x")
	_, errWrong := f.svc.Login(context.Background(), "alice@example.com", "x")

	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())

	require.Len(t, f.verifier.seen, 2)
	assert.Equal(t, dummyHash(), f.verifier.seen[0], "verifier still runs for unknown users")
}

func TestLogin_StorageFailures(t *testing.T) {
	t.Run("user lookup", func(t *testing.T) {
		f := newAuthFixture(t)
		f.store.fail["users.FindByIdentifier"] = errors.New("db error: conn refused")

		_, err := f.svc.Login(context.Background(), "alice@example.com", "correct-horse")
		assert.Equal(t, common.CodeServiceUnavailable, common.CodeOf(err))
		assert.NotContains(t, err.(*common.Error).Message, "conn refused")
	})

	t.Run("refresh token store", func(t *testing.T) {
		f := newAuthFixture(t)
		f.store.fail["refresh.Create"] = errors.New("db error")

		_, err := f.svc.Login(context.Background(), "alice@example.com", "correct-horse")
		assert.Equal(t, common.CodeServiceUnavailable, common.CodeOf(err))
	})
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	f.clk.Advance(time.Hour)
	f.store.setUser("u1", func(u *models.User) { u.Role = auth.RoleAdmin })

	res, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, res.ExpiresIn)

	claims, err := f.codec.Parse(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role, "role is re-read on refresh")
	assert.Contains(t, claims.Authorities, auth.AdminDelete)
}

func TestRefresh_ScenarioD(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	f.store.setUser("u1", func(u *models.User) { u.Enabled = false })

	_, err = f.refresh.Validate(ctx, login.RefreshToken)
	require.NoError(t, err, "refresh token itself is still fine")

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrAccountDisabled)
}

func TestRefresh_TokenFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrRefreshTokenNotFound)

	login, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, login.RefreshToken))

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
}

func TestLogout_NoOpCases(t *testing.T) {
	f := newAuthFixture(t)

	assert.NoError(t, f.svc.Logout(context.Background(), ""))
	assert.NoError(t, f.svc.Logout(context.Background(), "never-issued"))
}

func TestLogoutAll(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	a, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	b, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, "u1"))

	for _, tok := range []string{a.RefreshToken, b.RefreshToken} {
		_, err := f.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		p, err := f.svc.Authenticate(ctx, login.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, &Principal{
			UserID:      "u1",
			Identifier:  "alice@example.com",
			Role:        auth.RoleManager,
			Authorities: auth.AuthoritiesFor(auth.RoleManager),
			ExpiresIn:   15 * time.Minute,
		}, p)
	})

	t.Run("remaining lifetime", func(t *testing.T) {
		f.clk.Advance(10 * time.Minute)
		t.Cleanup(func() { f.clk.Advance(-10 * time.Minute) })

		p, err := f.svc.Authenticate(ctx, login.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, p.ExpiresIn)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "garbage")
		assert.ErrorIs(t, err, common.ErrAccessTokenMalformed)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "")
		assert.ErrorIs(t, err, common.ErrAccessTokenMissing)
	})

	t.Run("subject gone", func(t *testing.T) {
		tok, err := f.codec.Issue("ghost", auth.RoleUser, nil)
		require.NoError(t, err)
		_, err = f.svc.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, common.ErrAccessTokenInvalid)
	})

	t.Run("account locked after issuance", func(t *testing.T) {
		f.store.setUser("u1", func(u *models.User) { u.AccountNonLocked = false })
		defer f.store.setUser("u1", func(u *models.User) { u.AccountNonLocked = true })

		_, err := f.svc.Authenticate(ctx, login.AccessToken)
		assert.ErrorIs(t, err, common.ErrAccountLocked)
	})

	t.Run("expired", func(t *testing.T) {
		f.clk.Advance(16 * time.Minute)
		defer f.clk.Advance(-16 * time.Minute)

		_, err := f.svc.Authenticate(ctx, login.AccessToken)
		assert.ErrorIs(t, err, common.ErrAccessTokenExpired)
	})
}
