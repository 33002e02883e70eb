package srp

import (
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Ephemeral is a per-exchange key pair. Secret never leaves its owner.
type Ephemeral struct {
	Secret string
	Public string
}

// Session is the outcome of a successful derivation: the shared key K and
// the proof this side sends to its peer.
type Session struct {
	Key   string
	Proof string
}

// GenerateSalt returns a random 32-byte salt as hex.
func GenerateSalt() (string, error) {
	b, err := randomBytes(saltSize)
	if err != nil {
		return "", err
	}
	return encodeHex(b), nil
}

// DerivePrivateKey computes x = H(s, H(I ":" p)). passwordHash is the
// password input after key stretching, never the raw password.
func DerivePrivateKey(salt, username, passwordHash string) (string, error) {
	s, err := decodeHex("salt", salt)
	if err != nil {
		return "", err
	}
	inner := hash([]byte(username), []byte(":"), []byte(passwordHash))
	return encodeHex(hash(s, inner)), nil
}

// DeriveVerifier computes v = g^x mod N.
func DeriveVerifier(privateKey string) (string, error) {
	x, err := decodeInt("private key", privateKey)
	if err != nil {
		return "", err
	}
	g := RFC5054Group2048
	v := new(big.Int).Exp(g.G, x, g.N)
	return encodeHex(g.pad(v)), nil
}

// GenerateClientEphemeral returns a random a and A = g^a mod N.
func GenerateClientEphemeral() (Ephemeral, error) {
	g := RFC5054Group2048
	secret, err := randomBytes(secretSize)
	if err != nil {
		return Ephemeral{}, err
	}
	a := new(big.Int).SetBytes(secret)
	A := new(big.Int).Exp(g.G, a, g.N)
	return Ephemeral{Secret: encodeHex(secret), Public: encodeHex(g.pad(A))}, nil
}

// DeriveClientSession derives the session key and client proof M1 from the
// client's secret ephemeral, the server's public ephemeral B and x.
func DeriveClientSession(clientSecret, serverPublic, salt, username, privateKey string) (Session, error) {
	g := RFC5054Group2048

	a, err := decodeInt("client secret ephemeral", clientSecret)
	if err != nil {
		return Session{}, err
	}
	B, err := decodeInt("server public ephemeral", serverPublic)
	if err != nil {
		return Session{}, err
	}
	s, err := decodeHex("salt", salt)
	if err != nil {
		return Session{}, err
	}
	x, err := decodeInt("private key", privateKey)
	if err != nil {
		return Session{}, err
	}

	if g.isZeroModN(B) {
		return Session{}, ErrInvalidPublic
	}

	A := new(big.Int).Exp(g.G, a, g.N)
	u := scrambling(A, B)
	if u.Sign() == 0 {
		return Session{}, ErrInvalidPublic
	}

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(g.G, x, g.N)
	kgx := new(big.Int).Mul(multiplier, gx)
	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, g.N)
	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, a)
	S := new(big.Int).Exp(base, exp, g.N)

	K := hash(g.pad(S))
	M1 := clientProof(A, B, s, username, K)

	return Session{Key: encodeHex(K), Proof: encodeHex(M1)}, nil
}

// VerifyServerProof checks M2 = H(A, M1, K) so the client knows the server
// holds the verifier before trusting its responses.
func VerifyServerProof(clientPublic string, session Session, serverProof string) error {
	A, err := decodeInt("client public ephemeral", clientPublic)
	if err != nil {
		return err
	}
	M1, err := decodeHex("client proof", session.Proof)
	if err != nil {
		return err
	}
	K, err := decodeHex("session key", session.Key)
	if err != nil {
		return err
	}
	got, err := decodeHex("server proof", serverProof)
	if err != nil {
		return err
	}

	want := serverProofFor(A, M1, K)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return fmt.Errorf("%w: server proof mismatch", ErrInvalidProof)
	}
	return nil
}

// scrambling computes u = H(PAD(A), PAD(B)).
func scrambling(A, B *big.Int) *big.Int {
	g := RFC5054Group2048
	return hashInt(g.pad(A), g.pad(B))
}

// clientProof computes M1 = H(H(N) xor H(g), H(I), s, PAD(A), PAD(B), K).
func clientProof(A, B *big.Int, salt []byte, username string, K []byte) []byte {
	g := RFC5054Group2048
	hN := hash(g.N.Bytes())
	hG := hash(g.pad(g.G))
	for i := range hN {
		hN[i] ^= hG[i]
	}
	return hash(hN, hash([]byte(username)), salt, g.pad(A), g.pad(B), K)
}

// serverProofFor computes M2 = H(PAD(A), M1, K).
func serverProofFor(A *big.Int, M1, K []byte) []byte {
	return hash(RFC5054Group2048.pad(A), M1, K)
}
