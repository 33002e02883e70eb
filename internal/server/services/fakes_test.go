package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/authlogs"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/vaults"
	"github.com/google/uuid"
)

// --- in-memory repositories shared by the service tests ---

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[string]*models.User
	recovery map[string]map[string]bool

	getErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}, recovery: map[string]map[string]bool{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.UserName == u.UserName {
			return nil, common.ErrUsernameTaken
		}
	}
	c := *u
	c.ID = uuid.NewString()
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == username {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) LockByID(ctx context.Context, id string) (*models.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) UpdateCredentials(_ context.Context, id, salt, verifier, encType, encSettings string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Salt, u.Verifier, u.EncryptionType, u.EncryptionSettings = salt, verifier, encType, encSettings
	return nil
}

func (f *fakeUsers) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.FailedLoginAttempts = 0
		until := lockUntil
		u.LockedUntil = &until
		return &until, nil
	}
	return nil, nil
}

func (f *fakeUsers) ResetFailedLogins(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func (f *fakeUsers) SetTwoFactor(_ context.Context, id string, enabled bool, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.TwoFactorEnabled, u.TwoFactorSecret = enabled, secret
	return nil
}

func (f *fakeUsers) ReplaceRecoveryCodes(_ context.Context, userID string, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := map[string]bool{}
	for _, h := range hashes {
		codes[h] = false
	}
	f.recovery[userID] = codes
	return nil
}

func (f *fakeUsers) UseRecoveryCode(_ context.Context, userID, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used, ok := f.recovery[userID][hash]
	if !ok || used {
		return false, nil
	}
	f.recovery[userID][hash] = true
	return true, nil
}

func (f *fakeUsers) set(id string, mutate func(u *models.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(f.byID[id])
}

type fakeVaults struct {
	mu     sync.Mutex
	byUser map[string][]*models.Vault
	now    func() time.Time

	createErr error
	deleteErr error
}

func newFakeVaults(now func() time.Time) *fakeVaults {
	return &fakeVaults{byUser: map[string][]*models.Vault{}, now: now}
}

func (f *fakeVaults) Create(_ context.Context, v *models.Vault) (*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byUser[v.UserID] {
		if existing.RevisionNumber == v.RevisionNumber {
			return nil, &common.ConflictError{LatestRevision: v.RevisionNumber}
		}
	}
	c := *v
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = f.now(), f.now()
	f.byUser[v.UserID] = append(f.byUser[v.UserID], &c)
	v.ID, v.CreatedAt, v.UpdatedAt = c.ID, c.CreatedAt, c.UpdatedAt
	return v, nil
}

func (f *fakeVaults) GetLatest(_ context.Context, userID string) (*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Vault
	for _, v := range f.byUser[userID] {
		if latest == nil || v.RevisionNumber > latest.RevisionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	c := *latest
	return &c, nil
}

func (f *fakeVaults) GetByRevision(_ context.Context, userID string, revision int64) (*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byUser[userID] {
		if v.RevisionNumber == revision {
			c := *v
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVaults) ListSince(_ context.Context, userID string, revision int64) ([]*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vault
	for _, v := range f.byUser[userID] {
		if v.RevisionNumber > revision {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber < out[j].RevisionNumber })
	return out, nil
}

func (f *fakeVaults) ListMeta(_ context.Context, userID string) ([]models.VaultMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VaultMeta
	for _, v := range f.byUser[userID] {
		out = append(out, models.VaultMeta{
			ID:             v.ID,
			RevisionNumber: v.RevisionNumber,
			Version:        v.Version,
			Salt:           v.Salt,
			Verifier:       v.Verifier,
			UpdatedAt:      v.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber > out[j].RevisionNumber })
	return out, nil
}

func (f *fakeVaults) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	list := f.byUser[userID]
	for i, v := range list {
		if v.ID == id {
			f.byUser[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeVaults) revisions(userID string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, v := range f.byUser[userID] {
		out = append(out, v.RevisionNumber)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type fakeTokens struct {
	mu      sync.Mutex
	byToken map[string]*models.RefreshToken
	now     func() time.Time
}

func newFakeTokens(now func() time.Time) *fakeTokens {
	return &fakeTokens{byToken: map[string]*models.RefreshToken{}, now: now}
}

func (f *fakeTokens) Create(_ context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *t
	c.ID = uuid.NewString()
	c.CreatedAt = f.now()
	f.byToken[c.Token] = &c
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTokens) FindRotatedSince(_ context.Context, previous string, since time.Time) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byToken {
		if t.PreviousToken == previous && !t.CreatedAt.Before(since) {
			c := *t
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeTokens) DeleteOtherDevices(_ context.Context, userID, device string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.byToken {
		if t.UserID == userID && t.DeviceIdentifier != device {
			delete(f.byToken, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.byToken {
		if t.Expires.Before(before) {
			delete(f.byToken, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byToken)
}

type fakeAuthLogs struct {
	mu      sync.Mutex
	now     func() time.Time
	entries []models.AuthLog
}

func (f *fakeAuthLogs) Create(_ context.Context, e *models.AuthLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.now != nil {
		e.CreatedAt = f.now()
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuthLogs) CountFailures(_ context.Context, username string, reason models.AuthFailureReason, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Username == username && !e.Success && e.FailureReason == reason && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAuthLogs) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeAuthLogs) last() models.AuthLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return models.AuthLog{}
	}
	return f.entries[len(f.entries)-1]
}

type fakeRepoManager struct {
	users  *fakeUsers
	vaults *fakeVaults
	tokens *fakeTokens
	logs   *fakeAuthLogs
}

func newFakeRepoManager(now func() time.Time) *fakeRepoManager {
	return &fakeRepoManager{
		users:  newFakeUsers(),
		vaults: newFakeVaults(now),
		tokens: newFakeTokens(now),
		logs:   &fakeAuthLogs{now: now},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) Vaults(dbx.DBTX) vaults.Repository               { return m.vaults }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }
func (m *fakeRepoManager) AuthLogs(dbx.DBTX) authlogs.Repository           { return m.logs }

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func newTestLogger() logging.Logger {
	return logging.Discard()
}
