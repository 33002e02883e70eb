package cryptox

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	jose "github.com/go-jose/go-jose/v3"
)

// DefaultRSABits is the modulus size of generated key pairs.
const DefaultRSABits = 2048

const jwkAlgorithm = "RSA-OAEP-256"

// GenerateRSAKeyPair creates an RSA key pair and returns both halves as JWK JSON.
func GenerateRSAKeyPair(bits int) (publicJWK, privateJWK string, err error) {
	priv, err := rsa.GenerateKey(randReader, bits)
	if err != nil {
		return "", "", fmt.Errorf("%w: rsa key generation: %v", common.ErrCrypto, err)
	}

	privKey := jose.JSONWebKey{Key: priv, Algorithm: jwkAlgorithm, Use: "enc"}
	pubKey := privKey.Public()

	privBytes, err := privKey.MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	pubBytes, err := pubKey.MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return string(pubBytes), string(privBytes), nil
}

func parseJWK(data string) (*jose.JSONWebKey, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("%w: malformed jwk: %v", common.ErrCrypto, err)
	}
	if !jwk.Valid() {
		return nil, fmt.Errorf("%w: invalid jwk", common.ErrCrypto)
	}
	return &jwk, nil
}

// ParsePublicJWK returns the RSA public key encoded in data.
func ParsePublicJWK(data string) (*rsa.PublicKey, error) {
	jwk, err := parseJWK(data)
	if err != nil {
		return nil, err
	}
	switch k := jwk.Key.(type) {
	case *rsa.PublicKey:
		return k, nil
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	default:
		return nil, fmt.Errorf("%w: jwk is not an RSA key", common.ErrCrypto)
	}
}

// ParsePrivateJWK returns the RSA private key encoded in data.
func ParsePrivateJWK(data string) (*rsa.PrivateKey, error) {
	jwk, err := parseJWK(data)
	if err != nil {
		return nil, err
	}
	k, ok := jwk.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: jwk is not an RSA private key", common.ErrCrypto)
	}
	return k, nil
}

// EncryptKeyForRecipient wraps symmetricKey with RSA-OAEP-SHA256 for the
// holder of publicJWK and returns it base64 encoded.
func EncryptKeyForRecipient(symmetricKey []byte, publicJWK string) (string, error) {
	pub, err := ParsePublicJWK(publicJWK)
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, symmetricKey, nil)
	if err != nil {
		return "", fmt.Errorf("%w: rsa encrypt: %v", common.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptKeyWithPrivateKey unwraps a key produced by EncryptKeyForRecipient.
func DecryptKeyWithPrivateKey(ciphertext, privateJWK string) ([]byte, error) {
	priv, err := ParsePrivateJWK(privateJWK)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", common.ErrCrypto, err)
	}
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return key, nil
}
