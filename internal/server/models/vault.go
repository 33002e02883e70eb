package models

import "time"

// Vault is one immutable revision of a user's encrypted vault together with
// the login material that was current when it was written.
type Vault struct {
	ID                 string
	UserID             string
	Blob               string
	Version            string
	RevisionNumber     int64
	FileSize           int
	CredentialsCount   int
	EmailAddressCount  int
	Salt               string
	Verifier           string
	EncryptionType     string
	EncryptionSettings string
	Client             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// VaultMeta is a vault row without its blob, enough to run retention.
type VaultMeta struct {
	ID             string
	RevisionNumber int64
	Version        string
	Salt           string
	Verifier       string
	UpdatedAt      time.Time
}
