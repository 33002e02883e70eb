// Package services contains application services for the AliasVault CLI.
// This file defines the authentication service: SRP login with optional
// two-factor step, registration, offline unlock from the local vault copy,
// token persistence, logout and two-factor management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/aliasvault/internal/client/repositories/vault"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/cryptox"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
)

// TwoFactorPrompt asks the user for an authenticator code or a recovery
// code. It is only called when the account has two-factor enabled.
type TwoFactorPrompt func() (string, error)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: SRP login against the server; persists the token pair.
//   - OfflineLogin: unlock the locally cached vault without the server.
//   - Register: create a new account and log in.
//   - Resume: load a persisted token pair into the API client.
//   - Logout: revoke the refresh token and forget the pair.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*Session, error)
	Login(ctx context.Context, username, password string, rememberMe bool, prompt TwoFactorPrompt) (*Session, error)
	OfflineLogin(ctx context.Context, username, password string) (*Session, error)
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (*api.StatusResponse, error)
	EnableTwoFactor(ctx context.Context) (*api.TwoFactorEnableResponse, error)
	ConfirmTwoFactor(ctx context.Context, code string) ([]string, error)
	DisableTwoFactor(ctx context.Context, code string) error
	Close(ctx context.Context) error
}

var totpCode = regexp.MustCompile(`^[0-9]{6}$`)

type authService struct {
	client client.API
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and
// local database. Tokens rotated by the client are written back to the
// metadata table.
func NewAuthService(c client.API, db *sql.DB) AuthService {
	a := &authService{client: c, db: db}
	c.OnTokensRefreshed(func(access, refresh string) {
		_ = a.saveTokens(context.Background(), "", access, refresh)
	})
	return a
}

// saveTokens writes the pair, and the username when set, in one transaction.
func (a *authService) saveTokens(ctx context.Context, username, access, refresh string) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if username != "" {
			if err := repo.Set(ctx, metadata.KeyUsername, username); err != nil {
				return err
			}
		}
		if err := repo.Set(ctx, metadata.KeyAccessToken, access); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyRefreshToken, refresh)
	})
}

func (a *authService) Register(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)
	if err := a.client.ValidateUsername(ctx, username); err != nil {
		return nil, err
	}

	salt, err := srp.GenerateSalt()
	if err != nil {
		return nil, err
	}
	params := kdf.Defaults()
	key, x, err := deriveLogin(username, password, salt, params)
	if err != nil {
		return nil, err
	}
	verifier, err := srp.DeriveVerifier(x)
	if err != nil {
		common.WipeByteArray(key)
		return nil, err
	}

	tokens, err := a.client.Register(ctx, &api.RegisterRequest{
		Username:           username,
		Salt:               salt,
		Verifier:           verifier,
		EncryptionType:     string(params.Type),
		EncryptionSettings: params.Settings(),
	})
	if err != nil {
		common.WipeByteArray(key)
		return nil, err
	}
	if err := a.saveTokens(ctx, username, tokens.Token, tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return &Session{Username: username, Key: key, Salt: salt, Params: params}, nil
}

// handshake runs one SRP round-trip up to the client proof. validate sends
// the proof through the endpoint the caller picked.
func (a *authService) handshake(ctx context.Context, username, password string,
	validate func(api.ValidateLoginRequest) (*api.ValidateLoginResponse, error),
) (*Session, *api.ValidateLoginResponse, error) {
	init, err := a.client.Login(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("login error: %w", err)
	}
	params, err := kdf.ParseSettings(init.EncryptionType, init.EncryptionSettings)
	if err != nil {
		return nil, nil, err
	}
	key, x, err := deriveLogin(username, password, init.Salt, params)
	if err != nil {
		return nil, nil, err
	}

	eph, err := srp.GenerateClientEphemeral()
	if err != nil {
		common.WipeByteArray(key)
		return nil, nil, err
	}
	srpSession, err := srp.DeriveClientSession(eph.Secret, init.ServerEphemeral, init.Salt, username, x)
	if err != nil {
		common.WipeByteArray(key)
		return nil, nil, err
	}

	resp, err := validate(api.ValidateLoginRequest{
		Username:              username,
		ClientPublicEphemeral: eph.Public,
		ClientSessionProof:    srpSession.Proof,
	})
	if err != nil {
		common.WipeByteArray(key)
		return nil, nil, err
	}

	if resp.Token != nil {
		if err := srp.VerifyServerProof(eph.Public, srpSession, resp.ServerSessionProof); err != nil {
			common.WipeByteArray(key)
			a.client.SetTokens("", "")
			return nil, nil, fmt.Errorf("server proof: %w", err)
		}
	}
	return &Session{Username: username, Key: key, Salt: init.Salt, Params: params}, resp, nil
}

// Login authenticates with SRP. When the server asks for a second factor,
// prompt is called and a fresh handshake carries the code, because the
// server discards its ephemeral after every validation.
func (a *authService) Login(ctx context.Context, username, password string, rememberMe bool, prompt TwoFactorPrompt) (*Session, error) {
	username = normalizeUsername(username)

	sess, resp, err := a.handshake(ctx, username, password, func(r api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
		r.RememberMe = rememberMe
		return a.client.ValidateLogin(ctx, &r)
	})
	if err != nil {
		return nil, err
	}

	if resp.RequiresTwoFactor {
		sess.Wipe()
		if prompt == nil {
			return nil, common.ErrTwoFactorRequired
		}
		code, err := prompt()
		if err != nil {
			return nil, err
		}
		sess, resp, err = a.handshake(ctx, username, password, func(r api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
			r.RememberMe = rememberMe
			if totpCode.MatchString(code) {
				return a.client.ValidateLoginTwoFactor(ctx, &api.ValidateLoginTwoFactorRequest{ValidateLoginRequest: r, Code: code})
			}
			return a.client.ValidateLoginRecoveryCode(ctx, &api.ValidateLoginRecoveryCodeRequest{ValidateLoginRequest: r, RecoveryCode: code})
		})
		if err != nil {
			return nil, err
		}
	}

	if resp.Token == nil {
		sess.Wipe()
		return nil, fmt.Errorf("login error: %w", common.ErrorInternal)
	}
	if err := a.saveTokens(ctx, username, resp.Token.Token, resp.Token.RefreshToken); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return sess, nil
}

// OfflineLogin derives the key from the parameters stored with the local
// vault copy and proves it by decrypting that copy. Returns
// client.ErrLocalDataNotAvailable when nothing is cached and
// client.ErrUnauthorized when the password is wrong.
func (a *authService) OfflineLogin(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)

	local, err := vault.NewSQLiteRepository(a.db).Get(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, client.ErrLocalDataNotAvailable
	}
	if err != nil {
		return nil, err
	}

	params, err := kdf.ParseSettings(local.EncryptionType, local.EncryptionSettings)
	if err != nil {
		return nil, err
	}
	key, err := kdf.Derive(password, local.Salt, params)
	if err != nil {
		return nil, err
	}
	if local.Blob != "" {
		if _, err := cryptox.DecryptString(local.Blob, key); err != nil {
			common.WipeByteArray(key)
			return nil, client.ErrUnauthorized
		}
	}
	return &Session{
		Username: username,
		Key:      key,
		Salt:     local.Salt,
		Params:   params,
		Revision: local.RevisionNumber,
		Offline:  true,
	}, nil
}

// Resume installs the persisted token pair and returns the username it
// belongs to. Returns client.ErrLocalDataNotAvailable when none is stored.
func (a *authService) Resume(ctx context.Context) (string, error) {
	repo := metadata.NewSQLiteRepository(a.db)
	values, err := repo.List(ctx)
	if err != nil {
		return "", err
	}
	username := values[metadata.KeyUsername]
	access := values[metadata.KeyAccessToken]
	if username == "" || access == "" {
		return "", client.ErrLocalDataNotAvailable
	}
	a.client.SetTokens(access, values[metadata.KeyRefreshToken])
	return username, nil
}

// Logout revokes the refresh token and removes the pair locally even when
// the server cannot be reached. The username is kept for offline unlock.
func (a *authService) Logout(ctx context.Context) error {
	revokeErr := a.client.Revoke(ctx)

	repo := metadata.NewSQLiteRepository(a.db)
	for _, k := range []string{metadata.KeyAccessToken, metadata.KeyRefreshToken} {
		if err := repo.Delete(ctx, k); err != nil {
			return err
		}
	}
	a.client.SetTokens("", "")
	return revokeErr
}

func (a *authService) Status(ctx context.Context) (*api.StatusResponse, error) {
	return a.client.Status(ctx)
}

func (a *authService) EnableTwoFactor(ctx context.Context) (*api.TwoFactorEnableResponse, error) {
	return a.client.EnableTwoFactor(ctx)
}

func (a *authService) ConfirmTwoFactor(ctx context.Context, code string) ([]string, error) {
	resp, err := a.client.ConfirmTwoFactor(ctx, code)
	if err != nil {
		return nil, err
	}
	return resp.RecoveryCodes, nil
}

func (a *authService) DisableTwoFactor(ctx context.Context, code string) error {
	return a.client.DisableTwoFactor(ctx, code)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
