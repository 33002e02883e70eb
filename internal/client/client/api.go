package client

import (
	"context"

	"github.com/dmitrijs2005/aliasvault/internal/api"
)

// API is the transport-agnostic contract the CLI services talk to. Both
// RESTClient and GRPCClient implement it.
type API interface {
	Close() error

	// SetTokens installs the access/refresh pair used for authorized calls.
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	// OnTokensRefreshed registers fn to be called after a transparent
	// refresh so the new pair can be persisted.
	OnTokensRefreshed(fn func(access, refresh string))

	Login(ctx context.Context, username string) (*api.LoginInitiateResponse, error)
	ValidateLogin(ctx context.Context, req *api.ValidateLoginRequest) (*api.ValidateLoginResponse, error)
	ValidateLoginTwoFactor(ctx context.Context, req *api.ValidateLoginTwoFactorRequest) (*api.ValidateLoginResponse, error)
	ValidateLoginRecoveryCode(ctx context.Context, req *api.ValidateLoginRecoveryCodeRequest) (*api.ValidateLoginResponse, error)
	Register(ctx context.Context, req *api.RegisterRequest) (*api.TokenModel, error)
	ValidateUsername(ctx context.Context, username string) error
	Revoke(ctx context.Context) error

	Status(ctx context.Context) (*api.StatusResponse, error)
	PasswordChangeInitiate(ctx context.Context) (*api.LoginInitiateResponse, error)
	EnableTwoFactor(ctx context.Context) (*api.TwoFactorEnableResponse, error)
	ConfirmTwoFactor(ctx context.Context, code string) (*api.TwoFactorConfirmResponse, error)
	DisableTwoFactor(ctx context.Context, code string) error

	GetVault(ctx context.Context) (*api.VaultGetResponse, error)
	MergeVaults(ctx context.Context, currentRevision int64) (*api.VaultMergeResponse, error)
	UpdateVault(ctx context.Context, v *api.Vault) (*api.VaultUpdateResponse, error)
	ChangePassword(ctx context.Context, req *api.PasswordChangeRequest) (*api.VaultUpdateResponse, error)
	// ArchiveLink is REST only; GRPCClient returns ErrNotSupported.
	ArchiveLink(ctx context.Context, revision int64) (string, error)
}
