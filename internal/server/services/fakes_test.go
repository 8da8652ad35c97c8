package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/verificationtokens"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory repositories shared through a fake manager ---

type memStore struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*models.User
	refresh map[string]*models.RefreshToken
	verif   map[string]*models.VerificationToken
	fail    map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		refresh: map[string]*models.RefreshToken{},
		verif:   map[string]*models.VerificationToken{},
		fail:    map[string]error{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) failing(op string) error {
	return s.fail[op]
}

func (s *memStore) addUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return u
}

func (s *memStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) setUser(id string, mutate func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.users[id])
}

func (s *memStore) refreshToken(token string) models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.refresh[token]
}

func (s *memStore) verificationToken(token string) models.VerificationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.verif[token]
}

func (s *memStore) pendingCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.verif {
		if t.UserID == userID && t.Status == models.TokenStatusPending {
			n++
		}
	}
	return n
}

type fakeManager struct{ s *memStore }

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeManager) Users(dbx.DBTX) users.Repository { return &fakeUsers{m.s} }

func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &fakeRefresh{m.s}
}
func (m *fakeManager) VerificationTokens(dbx.DBTX) verificationtokens.Repository {
	return &fakeVerification{m.s}
}

type fakeUsers struct{ s *memStore }

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("users.FindByIdentifier"); err != nil {
		return nil, err
	}
	for _, u := range f.s.users {
		if u.Identifier == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) Enable(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("users.Enable"); err != nil {
		return err
	}
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Enabled = true
	u.EmailVerified = true
	return nil
}

type fakeRefresh struct{ s *memStore }

func (f *fakeRefresh) Create(ctx context.Context, t *models.RefreshToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.Create"); err != nil {
		return err
	}
	if _, dup := f.s.refresh[t.Token]; dup {
		return fmt.Errorf("db error: duplicate token")
	}
	t.ID = f.s.nextID("rt")
	t.CreatedAt = time.Now()
	cp := *t
	f.s.refresh[t.Token] = &cp
	return nil
}

func (f *fakeRefresh) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.FindByToken"); err != nil {
		return nil, err
	}
	t, ok := f.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefresh) Revoke(ctx context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.Revoke"); err != nil {
		return err
	}
	t, ok := f.s.refresh[token]
	if !ok {
		return common.ErrorNotFound
	}
	t.Revoked = true
	return nil
}

func (f *fakeRefresh) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.RevokeAllByUserID"); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range f.s.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRefresh) DeleteAllByUserID(ctx context.Context, userID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.DeleteAllByUserID"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range f.s.refresh {
		if t.UserID == userID {
			delete(f.s.refresh, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefresh) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("refresh.PurgeStale"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range f.s.refresh {
		if (t.Revoked || t.ExpiresAt.Before(before)) && t.CreatedAt.Before(before) {
			delete(f.s.refresh, k)
			n++
		}
	}
	return n, nil
}

type fakeVerification struct{ s *memStore }

func (f *fakeVerification) Create(ctx context.Context, t *models.VerificationToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("verif.Create"); err != nil {
		return err
	}
	t.ID = f.s.nextID("vt")
	t.CreatedAt = time.Now()
	cp := *t
	f.s.verif[t.Token] = &cp
	return nil
}

func (f *fakeVerification) FindByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("verif.FindByToken"); err != nil {
		return nil, err
	}
	t, ok := f.s.verif[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeVerification) UpdateStatus(ctx context.Context, id string, status models.TokenStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("verif.UpdateStatus"); err != nil {
		return err
	}
	for _, t := range f.s.verif {
		if t.ID == id && t.Status == models.TokenStatusPending {
			t.Status = status
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeVerification) VoidPendingByUserID(ctx context.Context, userID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("verif.VoidPendingByUserID"); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range f.s.verif {
		if t.UserID == userID && t.Status == models.TokenStatusPending {
			t.Status = models.TokenStatusVoided
			n++
		}
	}
	return n, nil
}

func (f *fakeVerification) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failing("verif.PurgeStale"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range f.s.verif {
		if (t.Status == models.TokenStatusExpired || t.Status == models.TokenStatusVoided) && t.ExpiresAt.Before(before) {
			delete(f.s.verif, k)
			n++
		}
	}
	return n, nil
}

// --- helpers ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestDB returns a real *sql.DB so dbx.WithTx can begin and commit; the
// fake repositories ignore the handle they are bound to.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// sequenceTokens yields tok-1, tok-2, ... so tests can refer to tokens by name.
func sequenceTokens(prefix string) func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []any
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e.Payload)
}

func (p *recordingPublisher) payloads() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.got...)
}

func activeUser(id, identifier string) *models.User {
	return &models.User{
		ID:                    id,
		Identifier:            identifier,
		Role:                  "USER",
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		EmailVerified:         true,
	}
}
