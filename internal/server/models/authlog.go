package models

import "time"

// AuthEventType classifies an authentication log entry.
type AuthEventType string

const (
	AuthEventLogin            AuthEventType = "Login"
	AuthEventTwoFactor        AuthEventType = "TwoFactorAuthentication"
	AuthEventRecoveryCode     AuthEventType = "RecoveryCode"
	AuthEventRegister         AuthEventType = "Register"
	AuthEventPasswordChange   AuthEventType = "PasswordChange"
	AuthEventTokenRefresh     AuthEventType = "TokenRefresh"
	AuthEventLogout           AuthEventType = "Logout"
	AuthEventTwoFactorEnable  AuthEventType = "TwoFactorEnable"
	AuthEventTwoFactorDisable AuthEventType = "TwoFactorDisable"
)

// AuthFailureReason explains a failed attempt; empty on success.
type AuthFailureReason string

const (
	FailureNone             AuthFailureReason = ""
	FailureInvalidUsername  AuthFailureReason = "InvalidUsername"
	FailureInvalidPassword  AuthFailureReason = "InvalidPassword"
	FailureInvalidTwoFactor AuthFailureReason = "InvalidTwoFactorCode"
	FailureInvalidRecovery  AuthFailureReason = "InvalidRecoveryCode"
	FailureAccountLocked    AuthFailureReason = "AccountLocked"
	FailureAccountBlocked   AuthFailureReason = "AccountBlocked"
	FailureSessionExpired   AuthFailureReason = "SessionExpired"
	FailureInvalidRefresh   AuthFailureReason = "InvalidRefreshToken"
)

type AuthLog struct {
	ID            int64
	Username      string
	EventType     AuthEventType
	Success       bool
	FailureReason AuthFailureReason
	IPAddress     string
	UserAgent     string
	Client        string
	CreatedAt     time.Time
}
