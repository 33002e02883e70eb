// Package twofactor implements the TOTP second factor and its one-time
// recovery codes.
package twofactor

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// RecoveryCodeCount is how many recovery codes an enrollment produces.
	RecoveryCodeCount = 10

	recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	recoveryHalfLen  = 5
)

var randReader io.Reader = rand.Reader

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrollment is a freshly generated TOTP secret and its provisioning URI.
type Enrollment struct {
	Secret string
	URI    string
}

// NewEnrollment generates a TOTP secret for account under issuer.
func NewEnrollment(issuer, account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Rand:        randReader,
	})
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret(), URI: key.URL()}, nil
}

// Validate checks a six-digit code against secret at t, allowing one period
// of clock skew either side.
func Validate(code, secret string, t time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, t, validateOpts)
	return err == nil && ok
}

// GenerateCode returns the code valid for secret at t.
func GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, validateOpts)
}

// GenerateRecoveryCodes returns n codes formatted XXXXX-XXXXX and their
// hashes. Only the hashes should be persisted.
func GenerateRecoveryCodes(n int) (codes, hashes []string, err error) {
	buf := make([]byte, recoveryHalfLen*2)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(randReader, buf); err != nil {
			return nil, nil, err
		}
		var sb strings.Builder
		for j, b := range buf {
			if j == recoveryHalfLen {
				sb.WriteByte('-')
			}
			sb.WriteByte(recoveryAlphabet[int(b)%len(recoveryAlphabet)])
		}
		code := sb.String()
		codes = append(codes, code)
		hashes = append(hashes, HashRecoveryCode(code))
	}
	return codes, hashes, nil
}

// HashRecoveryCode normalizes a user-entered code (case, dashes, spaces) and
// returns its SHA-256 hex digest.
func HashRecoveryCode(code string) string {
	normalized := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(code)))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
