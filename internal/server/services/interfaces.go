package services

import (
	"context"

	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

// Authenticator is the account surface exposed by the REST and gRPC transports.
type Authenticator interface {
	LoginInitiate(ctx context.Context, username string) (*LoginInitiateResponse, error)
	LoginValidate(ctx context.Context, req LoginValidateRequest, client ClientInfo) (*LoginResult, error)
	LoginValidateTwoFactor(ctx context.Context, req LoginValidateRequest, code string, client ClientInfo) (*LoginResult, error)
	LoginValidateRecoveryCode(ctx context.Context, req LoginValidateRequest, code string, client ClientInfo) (*LoginResult, error)
	Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*TokenPair, error)
	ValidateUsername(ctx context.Context, username string) error
	Refresh(ctx context.Context, accessToken, refreshToken string, client ClientInfo) (*TokenPair, error)
	Revoke(ctx context.Context, accessToken, refreshToken string, client ClientInfo) error
	PasswordChangeInitiate(ctx context.Context, userID string) (*LoginInitiateResponse, error)
	PasswordChange(ctx context.Context, userID string, req PasswordChangeRequest, client ClientInfo) (int64, error)
	Status(ctx context.Context, userID string) (*StatusResult, error)
	EnableTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error)
	ConfirmTwoFactor(ctx context.Context, userID, code string, client ClientInfo) ([]string, error)
	DisableTwoFactor(ctx context.Context, userID, code string, client ClientInfo) error
}

// VaultStore is the vault surface exposed by the transports.
type VaultStore interface {
	GetLatest(ctx context.Context, userID string) (*models.Vault, error)
	ListSince(ctx context.Context, userID string, revision int64) ([]*models.Vault, error)
	AppendRevision(ctx context.Context, userID string, up VaultUpload) (int64, error)
}

// ArchiveLinker hands out download links for archived revisions.
type ArchiveLinker interface {
	PresignedURL(ctx context.Context, userID string, revision int64) (string, error)
}

var (
	_ Authenticator = (*AuthService)(nil)
	_ VaultStore    = (*VaultService)(nil)
	_ ArchiveLinker = (*S3Archiver)(nil)
	_ Archiver      = (*S3Archiver)(nil)
)
