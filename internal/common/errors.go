// Package common defines shared constants and sentinel errors used across
// client and server layers of AliasVault. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Authentication outcomes. Unknown user and wrong password both map to
	// ErrAuthenticationFailed so callers cannot tell them apart.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionExpired       = errors.New("login session expired")
	ErrTwoFactorRequired    = errors.New("two-factor authentication required")
	ErrTwoFactorInvalid     = errors.New("invalid two-factor code")
	ErrTwoFactorNotEnabled  = errors.New("two-factor authentication not enabled")
	ErrAccountLocked        = errors.New("account locked")
	ErrAccountBlocked       = errors.New("account blocked")

	// Registration / validation errors.
	ErrUsernameInvalid      = errors.New("invalid username")
	ErrUsernameTaken        = errors.New("username already in use")
	ErrUsernameMismatch     = errors.New("username mismatch")
	ErrRegistrationDisabled = errors.New("public registration disabled")
	ErrInvalidRequest       = errors.New("invalid request")

	// Vault errors.
	ErrVaultConflict = errors.New("vault revision conflict")
	ErrVaultOutdated = errors.New("vault client version is outdated")

	// Crypto errors. Never retried.
	ErrCrypto           = errors.New("crypto error")
	ErrDecryptionFailed = errors.New("decryption failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ConflictError reports a stale revision on vault upload together with the
// revision the server currently holds, so the client knows what to refetch.
type ConflictError struct {
	LatestRevision int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: latest revision is %d", ErrVaultConflict, e.LatestRevision)
}

// Is makes errors.Is(err, ErrVaultConflict) hold for *ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVaultConflict
}
