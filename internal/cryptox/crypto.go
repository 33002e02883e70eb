// Package cryptox implements the envelope primitives shared by the server and
// the CLI: AES-256-GCM for payloads encrypted with a password-derived key and
// RSA-OAEP-SHA256 (JWK encoded keys) for wrapping one-time symmetric keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/aliasvault/internal/common"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the GCM nonce length prefixed to every payload.
	NonceSize = 12
	// TagSize is the GCM authentication tag length appended by Seal.
	TagSize = 16
)

// randReader is the randomness source; tests may replace it.
var randReader io.Reader = rand.Reader

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: invalid key size %d, want %d", common.ErrCrypto, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return gcm, nil
}

// Encrypt seals plaintext with key using a fresh random nonce.
// The result is nonce (12 bytes) || ciphertext || tag (16 bytes).
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce generation: %v", common.ErrCrypto, err)
	}

	out := make([]byte, 0, NonceSize+len(plaintext)+TagSize)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. A wrong key or any modified
// byte yields common.ErrDecryptionFailed and no plaintext.
func Decrypt(payload, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(payload) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: payload too short", common.ErrDecryptionFailed)
	}

	plaintext, err := gcm.Open(nil, payload[:NonceSize], payload[NonceSize:], nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString encrypts a UTF-8 string and returns standard base64, the
// representation used for vault blobs on the wire.
func EncryptString(plaintext string, key []byte) (string, error) {
	sealed, err := Encrypt([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func DecryptString(ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", common.ErrCrypto, err)
	}
	plaintext, err := Decrypt(raw, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptJSON serializes v to JSON and encrypts it with EncryptString.
func EncryptJSON(v any, key []byte) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)
	return EncryptString(string(plaintext), key)
}

// DecryptJSON decrypts a blob produced by EncryptJSON into v.
func DecryptJSON(ciphertext string, key []byte, v any) error {
	plaintext, err := DecryptString(ciphertext, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(plaintext), v)
}

// GenerateKey returns a random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return nil, fmt.Errorf("%w: key generation: %v", common.ErrCrypto, err)
	}
	return key, nil
}
