package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
	"golang.org/x/crypto/hkdf"
)

// loginMaterial is what a login needs to know about an account: SRP salt and
// verifier plus the parameters the client stretches its password with.
type loginMaterial struct {
	Salt               string
	Verifier           string
	EncryptionType     string
	EncryptionSettings string
}

// fakeLoginMaterial derives stable SRP material for a username that has no
// account. The same username always yields the same salt, so repeated
// initiates do not reveal that the account is missing.
func fakeLoginMaterial(secret []byte, username string) (loginMaterial, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte("fake-srp|"+username))

	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return loginMaterial{}, fmt.Errorf("fake material: %w", err)
	}

	salt := hex.EncodeToString(buf[:32])
	passwordHash := strings.ToUpper(hex.EncodeToString(buf[32:]))

	x, err := srp.DerivePrivateKey(salt, username, passwordHash)
	if err != nil {
		return loginMaterial{}, err
	}
	v, err := srp.DeriveVerifier(x)
	if err != nil {
		return loginMaterial{}, err
	}

	p := kdf.Defaults()
	return loginMaterial{
		Salt:               salt,
		Verifier:           v,
		EncryptionType:     string(p.Type),
		EncryptionSettings: p.Settings(),
	}, nil
}
