package srp

import (
	"crypto/subtle"
	"math/big"
)

// GenerateServerEphemeral returns a random b and B = k*v + g^b mod N for the
// given verifier.
func GenerateServerEphemeral(verifier string) (Ephemeral, error) {
	g := RFC5054Group2048

	v, err := decodeInt("verifier", verifier)
	if err != nil {
		return Ephemeral{}, err
	}
	secret, err := randomBytes(secretSize)
	if err != nil {
		return Ephemeral{}, err
	}
	b := new(big.Int).SetBytes(secret)

	B := new(big.Int).Mul(multiplier, v)
	B.Add(B, new(big.Int).Exp(g.G, b, g.N))
	B.Mod(B, g.N)

	return Ephemeral{Secret: encodeHex(secret), Public: encodeHex(g.pad(B))}, nil
}

// DeriveServerSession verifies the client proof and, on success, returns the
// session whose Proof is M2 for the client. It fails closed: a wrong password
// yields ErrInvalidProof and no session.
func DeriveServerSession(serverSecret, clientPublic, salt, username, verifier, clientProofHex string) (Session, error) {
	g := RFC5054Group2048

	b, err := decodeInt("server secret ephemeral", serverSecret)
	if err != nil {
		return Session{}, err
	}
	A, err := decodeInt("client public ephemeral", clientPublic)
	if err != nil {
		return Session{}, err
	}
	s, err := decodeHex("salt", salt)
	if err != nil {
		return Session{}, err
	}
	v, err := decodeInt("verifier", verifier)
	if err != nil {
		return Session{}, err
	}
	claimed, err := decodeHex("client proof", clientProofHex)
	if err != nil {
		return Session{}, err
	}

	if g.isZeroModN(A) {
		return Session{}, ErrInvalidPublic
	}

	B := new(big.Int).Mul(multiplier, v)
	B.Add(B, new(big.Int).Exp(g.G, b, g.N))
	B.Mod(B, g.N)

	u := scrambling(A, B)
	if u.Sign() == 0 {
		return Session{}, ErrInvalidPublic
	}

	// S = (A * v^u) ^ b mod N
	base := new(big.Int).Exp(v, u, g.N)
	base.Mul(base, A)
	base.Mod(base, g.N)
	S := new(big.Int).Exp(base, b, g.N)

	K := hash(g.pad(S))
	expected := clientProof(A, B, s, username, K)
	if subtle.ConstantTimeCompare(expected, claimed) != 1 {
		return Session{}, ErrInvalidProof
	}

	return Session{Key: encodeHex(K), Proof: encodeHex(serverProofFor(A, expected, K))}, nil
}
