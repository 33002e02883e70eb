package client

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/common"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
	ErrRateLimited           = errors.New("too many requests, try again later")
	ErrNotSupported          = errors.New("not supported by this transport")
)

// ServerError carries the message returned by the server. Err is the
// sentinel (or *common.ConflictError) callers match with errors.Is/As.
type ServerError struct {
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ServerError) Unwrap() error { return e.Err }

// unauthenticated picks the sentinel for a 401/Unauthenticated message.
func unauthenticated(message string) error {
	m := strings.ToLower(message)
	switch {
	case m == common.ErrTokenExpired.Error():
		return common.ErrTokenExpired
	case strings.Contains(m, "session expired"):
		return common.ErrSessionExpired
	case strings.Contains(m, "authentication code"):
		return common.ErrTwoFactorInvalid
	case strings.Contains(m, "username or password"):
		return common.ErrAuthenticationFailed
	default:
		return ErrUnauthorized
	}
}

func forbidden(message string) error {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "blocked"):
		return common.ErrAccountBlocked
	case strings.Contains(m, "locked"):
		return common.ErrAccountLocked
	case strings.Contains(m, "registration"):
		return common.ErrRegistrationDisabled
	default:
		return common.ErrAccountBlocked
	}
}

func badRequest(message string) error {
	if strings.Contains(strings.ToLower(message), "outdated") {
		return common.ErrVaultOutdated
	}
	return common.ErrInvalidRequest
}

// IsConflict reports whether err is a vault conflict and returns the
// revision the server holds.
func IsConflict(err error) (int64, bool) {
	var conflict *common.ConflictError
	if errors.As(err, &conflict) {
		return conflict.LatestRevision, true
	}
	return 0, false
}
