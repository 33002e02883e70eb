package srp

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"strings"
)

// randReader is the randomness source for salts and ephemerals.
var randReader io.Reader = rand.Reader

const (
	saltSize   = 32
	secretSize = 32
)

func decodeHex(field, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, encodingError(field, errors.New("empty value"))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, encodingError(field, err)
	}
	return b, nil
}

func decodeInt(field, s string) (*big.Int, error) {
	b, err := decodeHex(field, s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
