package services

import (
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
)

// Session is an unlocked vault: the key derived from the master password
// and the parameters it was derived with. It lives only in memory.
type Session struct {
	Username string
	Key      []byte
	Salt     string
	Params   kdf.Params
	// Revision is the vault revision the local plaintext is based on.
	Revision int64
	// Offline is set when the session was opened from the local copy.
	Offline bool
}

// Wipe zeroes the key.
func (s *Session) Wipe() {
	if s == nil {
		return
	}
	common.WipeByteArray(s.Key)
	s.Key = nil
}

// normalizeUsername matches the server's canonical form; the SRP private key
// is bound to it.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// deriveLogin stretches password with params and returns the vault key and
// the SRP private key x.
func deriveLogin(username, password, salt string, params kdf.Params) ([]byte, string, error) {
	key, err := kdf.Derive(password, salt, params)
	if err != nil {
		return nil, "", err
	}
	x, err := srp.DerivePrivateKey(salt, username, kdf.PasswordHash(key))
	if err != nil {
		common.WipeByteArray(key)
		return nil, "", err
	}
	return key, x, nil
}
