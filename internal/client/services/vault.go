package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/models"
	"github.com/dmitrijs2005/aliasvault/internal/client/repositories/vault"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/cryptox"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
)

// Content is a decrypted vault plus the counters reported to the server.
type Content struct {
	Data              string
	CredentialsCount  int
	EmailAddressCount int
}

// Revision describes one server-side vault revision without its contents.
type Revision struct {
	Number            int64
	Version           string
	Client            string
	CredentialsCount  int
	EmailAddressCount int
	UpdatedAt         string
}

// ArchivedVault is a pruned revision fetched from the archive bucket.
type ArchivedVault struct {
	RevisionNumber     int64     `json:"revisionNumber"`
	Version            string    `json:"version"`
	Blob               string    `json:"blob"`
	Salt               string    `json:"salt"`
	EncryptionType     string    `json:"encryptionType"`
	EncryptionSettings string    `json:"encryptionSettings"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Downloader fetches the body of a presigned URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type VaultService interface {
	// Pull downloads the latest revision, refreshes the local copy and
	// returns the plaintext. s.Revision is moved to the pulled revision.
	Pull(ctx context.Context, s *Session) (string, error)
	// Push uploads content on top of s.Revision. A stale base yields an
	// error matching common.ErrVaultConflict.
	Push(ctx context.Context, s *Session, content Content) (int64, error)
	// Local decrypts the cached copy.
	Local(ctx context.Context, s *Session) (string, error)
	History(ctx context.Context, since int64) ([]Revision, error)
	// ChangePassword proves currentPassword, re-encrypts the latest vault
	// under newPassword and updates s in place.
	ChangePassword(ctx context.Context, s *Session, currentPassword, newPassword string) (int64, error)
	FetchArchive(ctx context.Context, revision int64) (*ArchivedVault, error)
	// OpenArchive decrypts an archived revision. password may be empty when
	// the revision was written under the session's current key.
	OpenArchive(a *ArchivedVault, s *Session, password string) (string, error)
}

type vaultService struct {
	client     client.API
	repo       vault.Repository
	downloader Downloader
	version    string
	clientName string
	now        func() time.Time
}

// NewVaultService builds the vault service. version is the vault schema
// version this client writes.
func NewVaultService(c client.API, repo vault.Repository, downloader Downloader, version, clientName string) VaultService {
	return &vaultService{
		client:     c,
		repo:       repo,
		downloader: downloader,
		version:    version,
		clientName: clientName,
		now:        time.Now,
	}
}

func (v *vaultService) Pull(ctx context.Context, s *Session) (string, error) {
	resp, err := v.client.GetVault(ctx)
	if err != nil {
		return "", err
	}
	remote := resp.Vault

	plaintext := ""
	if remote.Blob != "" {
		if remote.Salt != "" && remote.Salt != s.Salt {
			// password changed on another device
			return "", fmt.Errorf("%w: vault key changed, log in again", client.ErrUnauthorized)
		}
		plaintext, err = cryptox.DecryptString(remote.Blob, s.Key)
		if err != nil {
			return "", err
		}
	}

	if err := v.repo.Save(ctx, &models.LocalVault{
		Username:           s.Username,
		RevisionNumber:     remote.CurrentRevisionNumber,
		Blob:               remote.Blob,
		Version:            remote.Version,
		Salt:               s.Salt,
		EncryptionType:     string(s.Params.Type),
		EncryptionSettings: s.Params.Settings(),
		UpdatedAt:          v.now(),
	}); err != nil {
		return "", err
	}
	s.Revision = remote.CurrentRevisionNumber
	return plaintext, nil
}

func (v *vaultService) encrypt(s *Session, content Content) (*api.Vault, error) {
	blob, err := cryptox.EncryptString(content.Data, s.Key)
	if err != nil {
		return nil, err
	}
	return &api.Vault{
		Blob:                  blob,
		Version:               v.version,
		CurrentRevisionNumber: s.Revision,
		CredentialsCount:      content.CredentialsCount,
		EmailAddressCount:     content.EmailAddressCount,
		Client:                v.clientName,
	}, nil
}

func (v *vaultService) Push(ctx context.Context, s *Session, content Content) (int64, error) {
	if s.Offline {
		return 0, client.ErrUnavailable
	}
	body, err := v.encrypt(s, content)
	if err != nil {
		return 0, err
	}
	resp, err := v.client.UpdateVault(ctx, body)
	if err != nil {
		return 0, err
	}

	s.Revision = resp.NewRevisionNumber
	if err := v.saveLocal(ctx, s, body); err != nil {
		return 0, err
	}
	return resp.NewRevisionNumber, nil
}

func (v *vaultService) saveLocal(ctx context.Context, s *Session, body *api.Vault) error {
	return v.repo.Save(ctx, &models.LocalVault{
		Username:           s.Username,
		RevisionNumber:     s.Revision,
		Blob:               body.Blob,
		Version:            body.Version,
		Salt:               s.Salt,
		EncryptionType:     string(s.Params.Type),
		EncryptionSettings: s.Params.Settings(),
		UpdatedAt:          v.now(),
	})
}

func (v *vaultService) Local(ctx context.Context, s *Session) (string, error) {
	local, err := v.repo.Get(ctx, s.Username)
	if errors.Is(err, common.ErrorNotFound) {
		return "", client.ErrLocalDataNotAvailable
	}
	if err != nil {
		return "", err
	}
	if local.Blob == "" {
		return "", nil
	}
	return cryptox.DecryptString(local.Blob, s.Key)
}

func (v *vaultService) History(ctx context.Context, since int64) ([]Revision, error) {
	resp, err := v.client.MergeVaults(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]Revision, 0, len(resp.Vaults))
	for _, r := range resp.Vaults {
		out = append(out, Revision{
			Number:            r.CurrentRevisionNumber,
			Version:           r.Version,
			Client:            r.Client,
			CredentialsCount:  r.CredentialsCount,
			EmailAddressCount: r.EmailAddressCount,
			UpdatedAt:         r.UpdatedAt,
		})
	}
	return out, nil
}

func (v *vaultService) ChangePassword(ctx context.Context, s *Session, currentPassword, newPassword string) (int64, error) {
	if s.Offline {
		return 0, client.ErrUnavailable
	}
	plaintext, err := v.Pull(ctx, s)
	if err != nil {
		return 0, err
	}

	init, err := v.client.PasswordChangeInitiate(ctx)
	if err != nil {
		return 0, err
	}
	params, err := kdf.ParseSettings(init.EncryptionType, init.EncryptionSettings)
	if err != nil {
		return 0, err
	}
	oldKey, x, err := deriveLogin(s.Username, currentPassword, init.Salt, params)
	if err != nil {
		return 0, err
	}
	common.WipeByteArray(oldKey)

	eph, err := srp.GenerateClientEphemeral()
	if err != nil {
		return 0, err
	}
	proof, err := srp.DeriveClientSession(eph.Secret, init.ServerEphemeral, init.Salt, s.Username, x)
	if err != nil {
		return 0, err
	}

	newSalt, err := srp.GenerateSalt()
	if err != nil {
		return 0, err
	}
	newParams := kdf.Defaults()
	newKey, newX, err := deriveLogin(s.Username, newPassword, newSalt, newParams)
	if err != nil {
		return 0, err
	}
	newVerifier, err := srp.DeriveVerifier(newX)
	if err != nil {
		common.WipeByteArray(newKey)
		return 0, err
	}

	next := &Session{Username: s.Username, Key: newKey, Salt: newSalt, Params: newParams, Revision: s.Revision}
	body, err := v.encrypt(next, Content{Data: plaintext})
	if err != nil {
		next.Wipe()
		return 0, err
	}

	resp, err := v.client.ChangePassword(ctx, &api.PasswordChangeRequest{
		CurrentClientPublicEphemeral: eph.Public,
		CurrentClientSessionProof:    proof.Proof,
		NewPasswordSalt:              newSalt,
		NewPasswordVerifier:          newVerifier,
		Vault:                        *body,
	})
	if err != nil {
		next.Wipe()
		return 0, err
	}

	next.Revision = resp.NewRevisionNumber
	s.Wipe()
	*s = *next
	if err := v.saveLocal(ctx, s, body); err != nil {
		return 0, err
	}
	return resp.NewRevisionNumber, nil
}

func (v *vaultService) FetchArchive(ctx context.Context, revision int64) (*ArchivedVault, error) {
	url, err := v.client.ArchiveLink(ctx, revision)
	if err != nil {
		return nil, err
	}
	raw, err := v.downloader.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	var a ArchivedVault
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed archive: %w", err)
	}
	return &a, nil
}

func (v *vaultService) OpenArchive(a *ArchivedVault, s *Session, password string) (string, error) {
	if a.Blob == "" {
		return "", nil
	}
	if password == "" {
		if a.Salt != s.Salt {
			return "", fmt.Errorf("%w: revision %d was written under another password", client.ErrUnauthorized, a.RevisionNumber)
		}
		return cryptox.DecryptString(a.Blob, s.Key)
	}

	params, err := kdf.ParseSettings(a.EncryptionType, a.EncryptionSettings)
	if err != nil {
		return "", err
	}
	key, err := kdf.Derive(password, a.Salt, params)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return cryptox.DecryptString(a.Blob, key)
}
