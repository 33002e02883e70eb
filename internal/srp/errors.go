package srp

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aliasvault/internal/common"
)

var (
	// ErrInvalidProof means the peer's session proof did not match: for the
	// server, the client does not know the password.
	ErrInvalidProof = errors.New("srp: invalid session proof")

	// ErrInvalidPublic means a peer public ephemeral was 0 mod N or otherwise
	// unusable; the exchange must be aborted.
	ErrInvalidPublic = errors.New("srp: invalid public ephemeral")

	// ErrOutOfOrder is returned when a handshake step is invoked in the wrong state.
	ErrOutOfOrder = errors.New("srp: handshake step out of order")
)

func encodingError(field string, err error) error {
	return fmt.Errorf("%w: srp: malformed %s: %v", common.ErrCrypto, field, err)
}
