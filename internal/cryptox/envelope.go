package cryptox

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/aliasvault/internal/common"
)

// Envelope is a payload sealed for a recipient: the body is AES-GCM encrypted
// under a one-time key, and that key is RSA-wrapped to the recipient's
// public key. Only the private key holder can open it.
type Envelope struct {
	EncryptedKey string `json:"encryptedSymmetricKey"`
	Payload      string `json:"payload"`
}

// SealForRecipient encrypts plaintext for the owner of publicJWK. It is the
// building block a mail relay would use to hand a message to a vault owner;
// no relay is part of this module, so only tests call it today.
func SealForRecipient(plaintext []byte, publicJWK string) (*Envelope, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	body, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	wrapped, err := EncryptKeyForRecipient(key, publicJWK)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EncryptedKey: wrapped,
		Payload:      base64.StdEncoding.EncodeToString(body),
	}, nil
}

// Open decrypts e with the recipient's private key.
func (e *Envelope) Open(privateJWK string) ([]byte, error) {
	key, err := DecryptKeyWithPrivateKey(e.EncryptedKey, privateJWK)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	body, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", common.ErrCrypto, err)
	}
	return Decrypt(body, key)
}
