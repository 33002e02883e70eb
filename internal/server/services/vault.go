package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/metrics"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aliasvault/internal/server/retention"
	"golang.org/x/mod/semver"
)

// InitialVaultVersion is the client version recorded on the empty vault
// created at registration.
const InitialVaultVersion = "0.0.0"

// VaultUpload is a client's new encrypted vault. CurrentRevisionNumber is
// the revision the client's copy was based on.
type VaultUpload struct {
	Blob                  string
	Version               string
	CurrentRevisionNumber int64
	CredentialsCount      int
	EmailAddressCount     int
	Client                string
}

// NewCredentials replaces the account's SRP material during a password change.
type NewCredentials struct {
	Salt     string
	Verifier string
	// Device keeps its refresh tokens; every other device is signed out.
	Device string
}

// VaultService owns the revision history of each user's vault.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      retention.Policy
	archiver    Archiver
	logger      logging.Logger
	now         func() time.Time
}

// NewVaultService builds a service. archiver may be nil, in which case
// pruned revisions are deleted without a copy.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, policy retention.Policy, archiver Archiver, logger logging.Logger) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		policy:      policy,
		archiver:    archiver,
		logger:      logger,
		now:         time.Now,
	}
}

// Appends may be retried by dbx.WithTxRetry. Archive objects are keyed by
// revision, so a retried transaction overwrites what the failed one uploaded.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// AppendRevision stores up as the next revision. It fails with a
// *common.ConflictError if the client's base revision is not the latest,
// and with common.ErrVaultOutdated if the client version went backwards.
// Retention runs in the same transaction.
func (s *VaultService) AppendRevision(ctx context.Context, userID string, up VaultUpload) (int64, error) {
	var rev int64
	err := dbx.WithTxRetry(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		rev, err = s.appendLocked(ctx, tx, userID, up, nil)
		return err
	})
	metrics.VaultUploadsTotal.WithLabelValues(uploadResult(err)).Inc()
	if err != nil {
		return 0, err
	}
	return rev, nil
}

// ChangePassword stores up under new login material, updates the account
// and revokes refresh tokens of every other device, atomically.
func (s *VaultService) ChangePassword(ctx context.Context, userID string, up VaultUpload, creds NewCredentials) (int64, error) {
	var rev int64
	err := dbx.WithTxRetry(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		rev, err = s.appendLocked(ctx, tx, userID, up, &creds)
		if err != nil {
			return err
		}

		n, err := s.repomanager.RefreshTokens(tx).DeleteOtherDevices(ctx, userID, creds.Device)
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "password changed", "user_id", userID, "revoked_tokens", n)
		return nil
	})
	metrics.VaultUploadsTotal.WithLabelValues(uploadResult(err)).Inc()
	if err != nil {
		return 0, err
	}
	return rev, nil
}

// CreateInitial stores revision 0, an empty vault, for a freshly registered user.
func (s *VaultService) CreateInitial(ctx context.Context, tx dbx.DBTX, user *models.User) error {
	_, err := s.repomanager.Vaults(tx).Create(ctx, &models.Vault{
		UserID:             user.ID,
		Blob:               "",
		Version:            InitialVaultVersion,
		RevisionNumber:     0,
		Salt:               user.Salt,
		Verifier:           user.Verifier,
		EncryptionType:     user.EncryptionType,
		EncryptionSettings: user.EncryptionSettings,
	})
	return err
}

func (s *VaultService) appendLocked(ctx context.Context, tx dbx.DBTX, userID string, up VaultUpload, creds *NewCredentials) (int64, error) {
	users := s.repomanager.Users(tx)
	vaults := s.repomanager.Vaults(tx)

	user, err := users.LockByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var latestRev int64
	latest, err := vaults.GetLatest(ctx, userID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		latest = nil
	case err != nil:
		return 0, err
	default:
		latestRev = latest.RevisionNumber
	}

	if up.CurrentRevisionNumber != latestRev {
		return 0, &common.ConflictError{LatestRevision: latestRev}
	}
	if latest != nil && compareVersions(up.Version, latest.Version) < 0 {
		return 0, fmt.Errorf("%w: %s is older than %s", common.ErrVaultOutdated, up.Version, latest.Version)
	}

	salt, verifier := user.Salt, user.Verifier
	encType, encSettings := user.EncryptionType, user.EncryptionSettings
	if creds != nil {
		defaults := kdf.Defaults()
		salt, verifier = creds.Salt, creds.Verifier
		encType, encSettings = string(defaults.Type), defaults.Settings()
		if err := users.UpdateCredentials(ctx, userID, salt, verifier, encType, encSettings); err != nil {
			return 0, err
		}
	}

	v := &models.Vault{
		UserID:             userID,
		Blob:               up.Blob,
		Version:            up.Version,
		RevisionNumber:     latestRev + 1,
		FileSize:           len(up.Blob),
		CredentialsCount:   up.CredentialsCount,
		EmailAddressCount:  up.EmailAddressCount,
		Salt:               salt,
		Verifier:           verifier,
		EncryptionType:     encType,
		EncryptionSettings: encSettings,
		Client:             up.Client,
	}
	if _, err := vaults.Create(ctx, v); err != nil {
		return 0, err
	}

	if err := s.prune(ctx, tx, userID); err != nil {
		return 0, fmt.Errorf("retention: %w", err)
	}
	return v.RevisionNumber, nil
}

func (s *VaultService) prune(ctx context.Context, tx dbx.DBTX, userID string) error {
	vaults := s.repomanager.Vaults(tx)

	metas, err := vaults.ListMeta(ctx, userID)
	if err != nil {
		return err
	}

	history := make([]retention.Snapshot, 0, len(metas))
	for _, m := range metas {
		history = append(history, retention.Snapshot{
			ID:             m.ID,
			RevisionNumber: m.RevisionNumber,
			UpdatedAt:      m.UpdatedAt,
			Version:        m.Version,
			Salt:           m.Salt,
			Verifier:       m.Verifier,
		})
	}

	start := time.Now()
	deleted := retention.Prune(history, s.policy, s.now())
	for _, d := range deleted {
		if s.archiver != nil {
			v, err := vaults.GetByRevision(ctx, userID, d.RevisionNumber)
			if err != nil {
				return err
			}
			if err := s.archiver.Archive(ctx, v); err != nil {
				return err
			}
		}
		if err := vaults.Delete(ctx, userID, d.ID); err != nil {
			return err
		}
	}
	metrics.ObserveRetention(start, len(deleted))
	if len(deleted) > 0 {
		s.logger.Info(ctx, "pruned vault revisions", "user_id", userID, "count", len(deleted))
	}
	return nil
}

// GetLatest returns the newest revision of the user's vault.
func (s *VaultService) GetLatest(ctx context.Context, userID string) (*models.Vault, error) {
	return s.repomanager.Vaults(s.db).GetLatest(ctx, userID)
}

// ListSince returns revisions newer than revision, oldest first. Clients use
// it to merge concurrent edits after a conflict.
func (s *VaultService) ListSince(ctx context.Context, userID string, revision int64) ([]*models.Vault, error) {
	return s.repomanager.Vaults(s.db).ListSince(ctx, userID, revision)
}

func uploadResult(err error) string {
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, common.ErrVaultConflict):
		return "conflict"
	case errors.Is(err, common.ErrVaultOutdated):
		return "outdated"
	default:
		return "error"
	}
}

// compareVersions compares dotted client versions. Unparseable versions sort
// before every valid one.
func compareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
