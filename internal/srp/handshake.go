package srp

// State is the position of a server handshake in the exchange.
type State int

const (
	Idle State = iota
	EphemeralExchanged
	ProofExchanged
	Verified
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case EphemeralExchanged:
		return "ephemeral-exchanged"
	case ProofExchanged:
		return "proof-exchanged"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ServerHandshake drives the server side of one login attempt. The secret
// ephemeral survives between round-trips outside the handshake (see
// ResumeServerHandshake), so a handshake value never has to be shared
// between requests.
type ServerHandshake struct {
	username string
	salt     string
	verifier string

	ephemeral Ephemeral
	session   Session
	state     State
}

// NewServerHandshake starts an exchange for the given account material.
func NewServerHandshake(username, salt, verifier string) *ServerHandshake {
	return &ServerHandshake{username: username, salt: salt, verifier: verifier}
}

// ResumeServerHandshake rebuilds a handshake that already issued its public
// ephemeral, from the cached secret half.
func ResumeServerHandshake(username, salt, verifier, serverSecret string) *ServerHandshake {
	return &ServerHandshake{
		username:  username,
		salt:      salt,
		verifier:  verifier,
		ephemeral: Ephemeral{Secret: serverSecret},
		state:     EphemeralExchanged,
	}
}

// Begin generates the server ephemeral and returns it.
func (h *ServerHandshake) Begin() (Ephemeral, error) {
	if h.state != Idle {
		return Ephemeral{}, ErrOutOfOrder
	}
	e, err := GenerateServerEphemeral(h.verifier)
	if err != nil {
		return Ephemeral{}, err
	}
	h.ephemeral = e
	h.state = EphemeralExchanged
	return e, nil
}

// Verify checks the client's ephemeral and proof. On success the state is
// Verified and the server proof is returned; otherwise the state is Rejected.
func (h *ServerHandshake) Verify(clientPublic, clientProof string) (string, error) {
	if h.state != EphemeralExchanged {
		return "", ErrOutOfOrder
	}
	h.state = ProofExchanged

	session, err := DeriveServerSession(h.ephemeral.Secret, clientPublic, h.salt, h.username, h.verifier, clientProof)
	if err != nil {
		h.state = Rejected
		return "", err
	}
	h.session = session
	h.state = Verified
	return session.Proof, nil
}

// State returns the current handshake state.
func (h *ServerHandshake) State() State {
	return h.state
}

// SessionKey returns the shared key K once the handshake is Verified.
func (h *ServerHandshake) SessionKey() (string, bool) {
	if h.state != Verified {
		return "", false
	}
	return h.session.Key, true
}
