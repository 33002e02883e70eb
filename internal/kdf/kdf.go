// Package kdf derives symmetric keys from a user password and salt with a
// memory-hard function. Parameters are versioned: every vault snapshot stores
// the encryption type and its JSON settings, so a historical snapshot stays
// derivable after the defaults change.
package kdf

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the length of every derived key in bytes.
const KeySize = 32

// EncryptionType names a key derivation algorithm as stored on snapshots.
type EncryptionType string

const (
	// Argon2ID is Argon2id as specified in RFC 9106.
	Argon2ID EncryptionType = "Argon2Id"
)

const (
	defaultParallelism = 4
	defaultMemorySize  = 8192 // KiB
	defaultIterations  = 1

	// Upper bounds reject settings that would exhaust the server or client.
	maxParallelism = 64
	maxMemorySize  = 4 * 1024 * 1024
	maxIterations  = 64
)

// Params are the tunable cost parameters of a derivation.
type Params struct {
	Type        EncryptionType `json:"-"`
	Parallelism uint8          `json:"DegreeOfParallelism"`
	MemorySize  uint32         `json:"MemorySize"`
	Iterations  uint32         `json:"Iterations"`
}

// Defaults returns the parameters used for new registrations and password changes.
func Defaults() Params {
	return Params{
		Type:        Argon2ID,
		Parallelism: defaultParallelism,
		MemorySize:  defaultMemorySize,
		Iterations:  defaultIterations,
	}
}

// Settings returns the JSON form of p stored next to each snapshot.
func (p Params) Settings() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// ParseSettings rebuilds Params from a stored (encryptionType, encryptionSettings) pair.
func ParseSettings(encryptionType, settings string) (Params, error) {
	t := EncryptionType(encryptionType)
	if _, ok := registry[t]; !ok {
		return Params{}, fmt.Errorf("%w: unknown encryption type %q", common.ErrCrypto, encryptionType)
	}

	p := Params{}
	if err := json.Unmarshal([]byte(settings), &p); err != nil {
		return Params{}, fmt.Errorf("%w: malformed encryption settings: %v", common.ErrCrypto, err)
	}
	p.Type = t

	if err := p.validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) validate() error {
	switch {
	case p.Parallelism == 0 || p.Parallelism > maxParallelism:
		return fmt.Errorf("%w: parallelism out of range", common.ErrCrypto)
	case p.MemorySize < 8*uint32(p.Parallelism) || p.MemorySize > maxMemorySize:
		return fmt.Errorf("%w: memory size out of range", common.ErrCrypto)
	case p.Iterations == 0 || p.Iterations > maxIterations:
		return fmt.Errorf("%w: iterations out of range", common.ErrCrypto)
	}
	return nil
}

// deriveFunc is the signature every registered algorithm implements.
type deriveFunc func(password, salt []byte, p Params) []byte

var registry = map[EncryptionType]deriveFunc{
	Argon2ID: func(password, salt []byte, p Params) []byte {
		return argon2.IDKey(password, salt, p.Iterations, p.MemorySize, p.Parallelism, KeySize)
	},
}

// Derive turns password and salt into a KeySize key. The salt is used as its
// UTF-8 bytes. The result is deterministic for equal inputs.
func Derive(password, salt string, p Params) ([]byte, error) {
	if !utf8.ValidString(password) {
		return nil, fmt.Errorf("%w: password is not valid UTF-8", common.ErrCrypto)
	}
	if salt == "" || !utf8.ValidString(salt) {
		return nil, fmt.Errorf("%w: malformed salt", common.ErrCrypto)
	}
	if p.Type == "" {
		p.Type = Argon2ID
	}
	fn, ok := registry[p.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown encryption type %q", common.ErrCrypto, p.Type)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return fn([]byte(password), []byte(salt), p), nil
}

// PasswordHash is the uppercase hex form of a derived key. It is the password
// input of the SRP private key, so the raw password never enters SRP.
func PasswordHash(key []byte) string {
	return strings.ToUpper(hex.EncodeToString(key))
}

// Supported reports whether t has a registered derive function.
func Supported(t string) bool {
	_, ok := registry[EncryptionType(t)]
	return ok
}
