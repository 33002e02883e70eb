package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeUser struct {
	salt, verifier       string
	encType, encSettings string
	twoFactor            bool
	totp, recovery       string
}

// fakeServer implements client.API with the real SRP server handshake and
// an in-memory revision list.
type fakeServer struct {
	mu sync.Mutex

	access, refresh string
	onRefresh       func(access, refresh string)

	users   map[string]*fakeUser
	secrets map[string]string
	current string

	revisions []api.Vault

	loginCalls     int
	twoFactorCalls int
	recoveryCalls  int
	revoked        bool
	revokeErr      error
	tamperProof    bool
	archiveURL     string
}

func newFakeServer() *fakeServer {
	return &fakeServer{users: map[string]*fakeUser{}, secrets: map[string]string{}}
}

func (f *fakeServer) Close() error { return nil }

func (f *fakeServer) SetTokens(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = access, refresh
}

func (f *fakeServer) Tokens() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeServer) OnTokensRefreshed(fn func(access, refresh string)) { f.onRefresh = fn }

func (f *fakeServer) issue(username string) *api.TokenModel {
	f.current = username
	f.access, f.refresh = "access-"+username, "refresh-"+username
	return &api.TokenModel{Token: f.access, RefreshToken: f.refresh}
}

func (f *fakeServer) begin(username string) (*api.LoginInitiateResponse, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, common.ErrAuthenticationFailed
	}
	eph, err := srp.NewServerHandshake(username, u.salt, u.verifier).Begin()
	if err != nil {
		return nil, err
	}
	f.secrets[username] = eph.Secret
	return &api.LoginInitiateResponse{
		Salt:               u.salt,
		ServerEphemeral:    eph.Public,
		EncryptionType:     u.encType,
		EncryptionSettings: u.encSettings,
	}, nil
}

// verify consumes the pending ephemeral, like the real server.
func (f *fakeServer) verify(username, clientPublic, clientProof string) (string, error) {
	secret, ok := f.secrets[username]
	if !ok {
		return "", common.ErrSessionExpired
	}
	delete(f.secrets, username)
	u := f.users[username]
	proof, err := srp.ResumeServerHandshake(username, u.salt, u.verifier, secret).Verify(clientPublic, clientProof)
	if err != nil {
		return "", common.ErrAuthenticationFailed
	}
	if f.tamperProof {
		proof = strings.Repeat("0", len(proof))
	}
	return proof, nil
}

func (f *fakeServer) Login(_ context.Context, username string) (*api.LoginInitiateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.begin(username)
}

func (f *fakeServer) ValidateLogin(_ context.Context, req *api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	proof, err := f.verify(req.Username, req.ClientPublicEphemeral, req.ClientSessionProof)
	if err != nil {
		return nil, err
	}
	if f.users[req.Username].twoFactor {
		return &api.ValidateLoginResponse{RequiresTwoFactor: true}, nil
	}
	return &api.ValidateLoginResponse{Token: f.issue(req.Username), ServerSessionProof: proof}, nil
}

func (f *fakeServer) ValidateLoginTwoFactor(_ context.Context, req *api.ValidateLoginTwoFactorRequest) (*api.ValidateLoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.twoFactorCalls++
	proof, err := f.verify(req.Username, req.ClientPublicEphemeral, req.ClientSessionProof)
	if err != nil {
		return nil, err
	}
	if req.Code != f.users[req.Username].totp {
		return nil, common.ErrTwoFactorInvalid
	}
	return &api.ValidateLoginResponse{Token: f.issue(req.Username), ServerSessionProof: proof}, nil
}

func (f *fakeServer) ValidateLoginRecoveryCode(_ context.Context, req *api.ValidateLoginRecoveryCodeRequest) (*api.ValidateLoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoveryCalls++
	proof, err := f.verify(req.Username, req.ClientPublicEphemeral, req.ClientSessionProof)
	if err != nil {
		return nil, err
	}
	if req.RecoveryCode != f.users[req.Username].recovery {
		return nil, common.ErrTwoFactorInvalid
	}
	return &api.ValidateLoginResponse{Token: f.issue(req.Username), ServerSessionProof: proof}, nil
}

func (f *fakeServer) Register(_ context.Context, req *api.RegisterRequest) (*api.TokenModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[req.Username]; ok {
		return nil, common.ErrUsernameTaken
	}
	f.users[req.Username] = &fakeUser{
		salt:        req.Salt,
		verifier:    req.Verifier,
		encType:     req.EncryptionType,
		encSettings: req.EncryptionSettings,
	}
	f.revisions = []api.Vault{{Version: "0.0.0", Salt: req.Salt, Verifier: req.Verifier}}
	return f.issue(req.Username), nil
}

func (f *fakeServer) ValidateUsername(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return common.ErrUsernameTaken
	}
	return nil
}

func (f *fakeServer) Revoke(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
	f.access, f.refresh = "", ""
	return f.revokeErr
}

func (f *fakeServer) Status(context.Context) (*api.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.StatusResponse{ServerVersion: "1.0.0", VaultRevision: f.latest().CurrentRevisionNumber}, nil
}

func (f *fakeServer) PasswordChangeInitiate(context.Context) (*api.LoginInitiateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begin(f.current)
}

func (f *fakeServer) EnableTwoFactor(context.Context) (*api.TwoFactorEnableResponse, error) {
	return &api.TwoFactorEnableResponse{Secret: "JBSWY3DPEHPK3PXP", QrCodeUrl: "otpauth://totp/AliasVault:alice"}, nil
}

func (f *fakeServer) ConfirmTwoFactor(_ context.Context, code string) (*api.TwoFactorConfirmResponse, error) {
	if code != "123456" {
		return nil, common.ErrTwoFactorInvalid
	}
	return &api.TwoFactorConfirmResponse{RecoveryCodes: []string{"AAAA-BBBB", "CCCC-DDDD"}}, nil
}

func (f *fakeServer) DisableTwoFactor(_ context.Context, code string) error {
	if code != "123456" {
		return common.ErrTwoFactorInvalid
	}
	return nil
}

func (f *fakeServer) latest() api.Vault {
	return f.revisions[len(f.revisions)-1]
}

func (f *fakeServer) GetVault(context.Context) (*api.VaultGetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.VaultGetResponse{Status: api.VaultStatusOk, Vault: f.latest()}, nil
}

func (f *fakeServer) MergeVaults(_ context.Context, since int64) (*api.VaultMergeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.Vault
	for _, v := range f.revisions {
		if v.CurrentRevisionNumber > since {
			out = append(out, v)
		}
	}
	return &api.VaultMergeResponse{Vaults: out}, nil
}

func (f *fakeServer) appendLocked(v api.Vault) (int64, error) {
	latest := f.latest()
	if v.CurrentRevisionNumber != latest.CurrentRevisionNumber {
		return 0, &common.ConflictError{LatestRevision: latest.CurrentRevisionNumber}
	}
	v.CurrentRevisionNumber = latest.CurrentRevisionNumber + 1
	u := f.users[f.current]
	v.Salt, v.Verifier = u.salt, u.verifier
	v.EncryptionType, v.EncryptionSettings = u.encType, u.encSettings
	f.revisions = append(f.revisions, v)
	return v.CurrentRevisionNumber, nil
}

func (f *fakeServer) UpdateVault(_ context.Context, v *api.Vault) (*api.VaultUpdateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, err := f.appendLocked(*v)
	if err != nil {
		return nil, err
	}
	return &api.VaultUpdateResponse{NewRevisionNumber: rev}, nil
}

func (f *fakeServer) ChangePassword(_ context.Context, req *api.PasswordChangeRequest) (*api.VaultUpdateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.verify(f.current, req.CurrentClientPublicEphemeral, req.CurrentClientSessionProof); err != nil {
		return nil, err
	}
	u := f.users[f.current]
	old := *u
	u.salt, u.verifier = req.NewPasswordSalt, req.NewPasswordVerifier
	rev, err := f.appendLocked(req.Vault)
	if err != nil {
		*u = old
		return nil, err
	}
	return &api.VaultUpdateResponse{NewRevisionNumber: rev}, nil
}

func (f *fakeServer) ArchiveLink(_ context.Context, revision int64) (string, error) {
	if f.archiveURL == "" {
		return "", common.ErrorNotFound
	}
	return fmt.Sprintf("%s/%d", f.archiveURL, revision), nil
}

type fakeDownloader struct {
	body    []byte
	err     error
	lastURL string
}

func (d *fakeDownloader) Download(_ context.Context, url string) ([]byte, error) {
	d.lastURL = url
	return d.body, d.err
}

var _ client.API = (*fakeServer)(nil)
