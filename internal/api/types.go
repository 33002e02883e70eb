// Package api declares the JSON request and response bodies shared by the
// REST and gRPC transports and the CLI client.
package api

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
}

type LoginInitiateResponse struct {
	Salt               string `json:"salt"`
	ServerEphemeral    string `json:"serverEphemeral"`
	EncryptionType     string `json:"encryptionType"`
	EncryptionSettings string `json:"encryptionSettings"`
}

// ValidateLoginRequest is the second SRP round-trip.
type ValidateLoginRequest struct {
	Username              string `json:"username" validate:"required,max=255"`
	RememberMe            bool   `json:"rememberMe"`
	ClientPublicEphemeral string `json:"clientPublicEphemeral" validate:"required,hexadecimal"`
	ClientSessionProof    string `json:"clientSessionProof" validate:"required,hexadecimal"`
}

type ValidateLoginTwoFactorRequest struct {
	ValidateLoginRequest
	Code string `json:"code2Fa" validate:"required,numeric,len=6"`
}

type ValidateLoginRecoveryCodeRequest struct {
	ValidateLoginRequest
	RecoveryCode string `json:"recoveryCode" validate:"required,max=64"`
}

type TokenModel struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type ValidateLoginResponse struct {
	RequiresTwoFactor  bool        `json:"requiresTwoFactor"`
	Token              *TokenModel `json:"token,omitempty"`
	ServerSessionProof string      `json:"serverSessionProof,omitempty"`
}

type RegisterRequest struct {
	Username           string `json:"username" validate:"required"`
	Salt               string `json:"salt" validate:"required,hexadecimal"`
	Verifier           string `json:"verifier" validate:"required,hexadecimal"`
	EncryptionType     string `json:"encryptionType" validate:"required"`
	EncryptionSettings string `json:"encryptionSettings" validate:"required"`
}

type ValidateUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

// RefreshRequest carries the possibly expired access token next to the
// refresh token it was issued with.
type RefreshRequest struct {
	Token        string `json:"token" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type StatusResponse struct {
	ClientVersionSupported    bool   `json:"clientVersionSupported"`
	ServerVersion             string `json:"serverVersion"`
	VaultRevision             int64  `json:"vaultRevision"`
	PublicRegistrationEnabled bool   `json:"publicRegistrationEnabled"`
}

type TwoFactorEnableResponse struct {
	Secret    string `json:"secret"`
	QrCodeUrl string `json:"qrCodeUrl"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type TwoFactorConfirmResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

// Vault is a single encrypted vault revision. Salt and Verifier are only
// filled in responses.
type Vault struct {
	Blob                  string `json:"blob" validate:"required"`
	Version               string `json:"version" validate:"required,max=32"`
	CurrentRevisionNumber int64  `json:"currentRevisionNumber" validate:"min=0"`
	CredentialsCount      int    `json:"credentialsCount" validate:"min=0"`
	EmailAddressCount     int    `json:"emailAddressCount" validate:"min=0"`
	Client                string `json:"client,omitempty"`
	Salt                  string `json:"salt,omitempty"`
	Verifier              string `json:"verifier,omitempty"`
	EncryptionType        string `json:"encryptionType,omitempty"`
	EncryptionSettings    string `json:"encryptionSettings,omitempty"`
	CreatedAt             string `json:"createdAt,omitempty"`
	UpdatedAt             string `json:"updatedAt,omitempty"`
}

type VaultGetResponse struct {
	Status int   `json:"status"`
	Vault  Vault `json:"vault"`
}

type VaultMergeRequest struct {
	CurrentRevisionNumber int64 `json:"currentRevisionNumber" form:"currentRevisionNumber" validate:"min=0"`
}

type VaultMergeResponse struct {
	Vaults []Vault `json:"vaults"`
}

type VaultUpdateResponse struct {
	Status            int   `json:"status"`
	NewRevisionNumber int64 `json:"newRevisionNumber"`
}

type PasswordChangeRequest struct {
	CurrentClientPublicEphemeral string `json:"currentClientPublicEphemeral" validate:"required,hexadecimal"`
	CurrentClientSessionProof    string `json:"currentClientSessionProof" validate:"required,hexadecimal"`
	NewPasswordSalt              string `json:"newPasswordSalt" validate:"required,hexadecimal"`
	NewPasswordVerifier          string `json:"newPasswordVerifier" validate:"required,hexadecimal"`
	Vault                        Vault  `json:"vault"`
}

type ArchiveLinkResponse struct {
	Url string `json:"url"`
}

// Error is the body of every non-2xx REST response.
type Error struct {
	Code           int    `json:"code"`
	Message        string `json:"message"`
	LatestRevision int64  `json:"latestRevision,omitempty"`
}

// Vault status values mirrored from the upload outcome.
const (
	VaultStatusOk            = 0
	VaultStatusMergeRequired = 1
	VaultStatusOutdated      = 2
)

// Empty is the body of requests and responses that carry no fields.
type Empty struct{}
