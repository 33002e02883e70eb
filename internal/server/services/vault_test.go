package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/retention"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingArchiver struct {
	mu        sync.Mutex
	revisions []int64
	err       error
}

func (a *recordingArchiver) Archive(_ context.Context, v *models.Vault) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.revisions = append(a.revisions, v.RevisionNumber)
	return nil
}

type vaultFixture struct {
	svc    *VaultService
	rm     *fakeRepoManager
	db     *sql.DB
	mock   sqlmock.Sqlmock
	clock  *clock
	userID string
}

func newVaultFixture(t *testing.T, policy retention.Policy, archiver Archiver) *vaultFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	clk := newClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	rm := newFakeRepoManager(clk.Now)

	params := kdf.Defaults()
	u, err := rm.users.Create(context.Background(), &models.User{
		UserName:           "alice",
		Salt:               "aa",
		Verifier:           "bb",
		EncryptionType:     string(params.Type),
		EncryptionSettings: params.Settings(),
	})
	require.NoError(t, err)

	svc := NewVaultService(db, rm, policy, archiver, newTestLogger())
	svc.now = clk.Now

	return &vaultFixture{svc: svc, rm: rm, db: db, mock: mock, clock: clk, userID: u.ID}
}

// append uploads a revision based on current. commit tells whether the
// transaction is expected to commit or roll back.
func (f *vaultFixture) append(t *testing.T, current int64, version string, commit bool) (int64, error) {
	t.Helper()
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
	return f.svc.AppendRevision(context.Background(), f.userID, VaultUpload{
		Blob:                  "blob",
		Version:               version,
		CurrentRevisionNumber: current,
		Client:                "cli",
	})
}

func keepAll() retention.Policy {
	return retention.Policy{Rules: []retention.Rule{retention.RevisionCount{N: 100}}}
}

func TestAppendRevision_FirstUploadWithoutInitialVault(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	rev, err := f.svc.AppendRevision(context.Background(), f.userID, VaultUpload{Blob: "x", Version: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	latest, err := f.svc.GetLatest(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "x", latest.Blob)
	assert.Equal(t, 1, latest.FileSize)
	assert.Equal(t, "aa", latest.Salt)
	assert.Equal(t, "bb", latest.Verifier)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_Sequential(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)
	require.NoError(t, f.svc.CreateInitial(context.Background(), f.db, &models.User{ID: f.userID, Salt: "aa", Verifier: "bb"}))

	for i := int64(0); i < 3; i++ {
		rev, err := f.append(t, i, "1.0.0", true)
		require.NoError(t, err)
		assert.Equal(t, i+1, rev)
	}
	assert.Equal(t, []int64{0, 1, 2, 3}, f.rm.vaults.revisions(f.userID))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_Conflict(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)

	_, err := f.append(t, 0, "1.0.0", true)
	require.NoError(t, err)

	_, err = f.append(t, 0, "1.0.0", false)
	require.Error(t, err)

	var conflict *common.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(1), conflict.LatestRevision)
	assert.ErrorIs(t, err, common.ErrVaultConflict)
	assert.Equal(t, []int64{1}, f.rm.vaults.revisions(f.userID))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_ClientAheadIsConflict(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)

	_, err := f.append(t, 5, "1.0.0", false)
	assert.ErrorIs(t, err, common.ErrVaultConflict)
}

func TestAppendRevision_OutdatedClient(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)

	_, err := f.append(t, 0, "1.10.0", true)
	require.NoError(t, err)

	_, err = f.append(t, 1, "1.9.3", false)
	assert.ErrorIs(t, err, common.ErrVaultOutdated)

	rev, err := f.append(t, 1, "1.10.0", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_PrunesAndArchives(t *testing.T) {
	arch := &recordingArchiver{}
	policy := retention.Policy{Rules: []retention.Rule{retention.RevisionCount{N: 2}}}
	f := newVaultFixture(t, policy, arch)
	require.NoError(t, f.svc.CreateInitial(context.Background(), f.db, &models.User{ID: f.userID, Salt: "aa", Verifier: "bb"}))

	for i := int64(0); i < 3; i++ {
		f.clock.Advance(time.Hour)
		_, err := f.append(t, i, "1.0.0", true)
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{2, 3}, f.rm.vaults.revisions(f.userID))
	assert.Equal(t, []int64{0, 1}, arch.revisions)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_ArchiveFailureRollsBack(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("bucket unavailable")}
	policy := retention.Policy{}
	f := newVaultFixture(t, policy, arch)
	require.NoError(t, f.svc.CreateInitial(context.Background(), f.db, &models.User{ID: f.userID, Salt: "aa", Verifier: "bb"}))

	_, err := f.append(t, 0, "1.0.0", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention")
	assert.Contains(t, err.Error(), "bucket unavailable")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAppendRevision_EmptyPolicyKeepsNewestOnly(t *testing.T) {
	f := newVaultFixture(t, retention.Policy{}, nil)

	for i := int64(0); i < 3; i++ {
		_, err := f.append(t, i, "1.0.0", true)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{3}, f.rm.vaults.revisions(f.userID))
}

func TestChangePassword_UpdatesCredentialsAndRevokesOtherDevices(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)
	ctx := context.Background()

	for _, tok := range []models.RefreshToken{
		{UserID: f.userID, Token: "this-device", DeviceIdentifier: "ua|en"},
		{UserID: f.userID, Token: "laptop", DeviceIdentifier: "firefox|de"},
		{UserID: "someone-else", Token: "foreign", DeviceIdentifier: "x|y"},
	} {
		tok := tok
		require.NoError(t, f.rm.tokens.Create(ctx, &tok))
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rev, err := f.svc.ChangePassword(ctx, f.userID, VaultUpload{Blob: "reencrypted", Version: "1.0.0"},
		NewCredentials{Salt: "cc", Verifier: "dd", Device: "ua|en"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	u, err := f.rm.users.GetByID(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "cc", u.Salt)
	assert.Equal(t, "dd", u.Verifier)
	assert.Equal(t, kdf.Defaults().Settings(), u.EncryptionSettings)

	latest, err := f.svc.GetLatest(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "cc", latest.Salt)
	assert.Equal(t, "dd", latest.Verifier)

	_, err = f.rm.tokens.Find(ctx, "laptop")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.rm.tokens.Find(ctx, "this-device")
	assert.NoError(t, err)
	_, err = f.rm.tokens.Find(ctx, "foreign")
	assert.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestChangePassword_PriorSnapshotsKeepTheirParams(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)
	ctx := context.Background()

	const oldSettings = `{"DegreeOfParallelism":2,"MemorySize":4096,"Iterations":3}`
	require.NoError(t, f.svc.CreateInitial(ctx, f.db, &models.User{
		ID:                 f.userID,
		Salt:               "ee",
		Verifier:           "ff",
		EncryptionType:     "Argon2Id",
		EncryptionSettings: oldSettings,
	}))
	before, err := f.rm.vaults.GetByRevision(ctx, f.userID, 0)
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rev, err := f.svc.ChangePassword(ctx, f.userID, VaultUpload{Blob: "reencrypted", Version: "1.0.0"},
		NewCredentials{Salt: "cc", Verifier: "dd", Device: "ua|en"})
	require.NoError(t, err)
	require.Equal(t, int64(1), rev)

	prior, err := f.rm.vaults.GetByRevision(ctx, f.userID, 0)
	require.NoError(t, err)
	assert.Equal(t, before, prior)
	assert.Equal(t, "ee", prior.Salt)
	assert.Equal(t, "ff", prior.Verifier)
	assert.Equal(t, oldSettings, prior.EncryptionSettings)

	defaults := kdf.Defaults()
	latest, err := f.rm.vaults.GetByRevision(ctx, f.userID, 1)
	require.NoError(t, err)
	assert.Equal(t, "cc", latest.Salt)
	assert.Equal(t, "dd", latest.Verifier)
	assert.Equal(t, string(defaults.Type), latest.EncryptionType)
	assert.Equal(t, defaults.Settings(), latest.EncryptionSettings)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestChangePassword_ConflictLeavesCredentials(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.ChangePassword(context.Background(), f.userID, VaultUpload{Blob: "b", CurrentRevisionNumber: 3},
		NewCredentials{Salt: "cc", Verifier: "dd"})
	assert.ErrorIs(t, err, common.ErrVaultConflict)

	u, err := f.rm.users.GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "aa", u.Salt)
}

func TestListSince(t *testing.T) {
	f := newVaultFixture(t, keepAll(), nil)
	for i := int64(0); i < 3; i++ {
		_, err := f.append(t, i, "1.0.0", true)
		require.NoError(t, err)
	}

	got, err := f.svc.ListSince(context.Background(), f.userID, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].RevisionNumber)
	assert.Equal(t, int64(3), got[1].RevisionNumber)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.9.0", "1.10.0", -1},
		{"v2.0.0", "1.99.99", 1},
		{"0.0.0", "0.1.0", -1},
		{"garbage", "0.0.1", -1},
		{" 1.2.3 ", "1.2.3", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestUploadResult(t *testing.T) {
	assert.Equal(t, "stored", uploadResult(nil))
	assert.Equal(t, "conflict", uploadResult(&common.ConflictError{LatestRevision: 1}))
	assert.Equal(t, "outdated", uploadResult(common.ErrVaultOutdated))
	assert.Equal(t, "error", uploadResult(errors.New("boom")))
}
