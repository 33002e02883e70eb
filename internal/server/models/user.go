// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Salt and Verifier are the current SRP login material;
// EncryptionType and EncryptionSettings describe how the client derives the
// password hash fed into SRP.
type User struct {
	ID                  string
	UserName            string
	Salt                string
	Verifier            string
	EncryptionType      string
	EncryptionSettings  string
	TwoFactorEnabled    bool
	TwoFactorSecret     string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	Blocked             bool
	PasswordChangedAt   time.Time
	CreatedAt           time.Time
}

// IsLocked reports whether the account is inside a lockout window at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RecoveryCode is a one-time second factor. Only the hash is stored.
type RecoveryCode struct {
	ID       string
	UserID   string
	CodeHash string
	UsedAt   *time.Time
}
