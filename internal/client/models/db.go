// Package models defines client-side data models used by the AliasVault CLI.
package models

import "time"

// LocalVault is the offline copy of the latest downloaded vault. Blob stays
// encrypted; Salt and the encryption parameters are what the key was
// derived with, so the copy can be opened without the server.
type LocalVault struct {
	Username           string
	RevisionNumber     int64
	Blob               string
	Version            string
	Salt               string
	EncryptionType     string
	EncryptionSettings string
	UpdatedAt          time.Time
}
