// Package srp implements SRP-6a (RFC 2945 / RFC 5054) with SHA-256 over the
// 2048-bit RFC 5054 group. All values cross the wire as lowercase hex strings.
//
// Client:                               Server:
//
//	x = H(s, H(I ":" p))                 v (stored at registration)
//	a, A = g^a                    A -->  b, B = k*v + g^b
//	                              <-- B
//	u = H(A, B)                          u = H(A, B)
//	S = (B - k*g^x)^(a + u*x)            S = (A * v^u)^b
//	K = H(S)                             K = H(S)
//	M1 = H(H(N)^H(g), H(I), s, A, B, K) --> verify M1
//	                              <-- M2 = H(A, M1, K)
package srp

import (
	"crypto/sha256"
	"math/big"
)

// Group is the multiplicative group Z*_N with generator G.
type Group struct {
	N *big.Int
	G *big.Int
}

// byteLen is the length of N in bytes; PAD() left-pads to it.
func (g Group) byteLen() int {
	return (g.N.BitLen() + 7) / 8
}

// pad returns x mod N as a big-endian byte slice left-padded to len(N).
func (g Group) pad(x *big.Int) []byte {
	z := new(big.Int).Mod(x, g.N)
	b := z.Bytes()
	out := make([]byte, g.byteLen())
	copy(out[len(out)-len(b):], b)
	return out
}

// isZeroModN reports whether x ≡ 0 (mod N); such public values are rejected.
func (g Group) isZeroModN(x *big.Int) bool {
	return new(big.Int).Mod(x, g.N).Sign() == 0
}

// RFC5054Group2048 is the 2048-bit group from RFC 5054 appendix A, g = 2.
var RFC5054Group2048 Group

// k is the SRP-6a multiplier H(N, PAD(g)) for RFC5054Group2048.
var multiplier *big.Int

func init() {
	n, ok := new(big.Int).SetString(
		"AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050"+
			"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50"+
			"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8"+
			"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B"+
			"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748"+
			"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6"+
			"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6"+
			"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73", 16)
	if !ok {
		panic("srp: invalid group prime")
	}
	RFC5054Group2048 = Group{N: n, G: big.NewInt(2)}
	multiplier = hashInt(n.Bytes(), RFC5054Group2048.pad(RFC5054Group2048.G))
}

// hash is SHA-256 over the concatenation of parts.
func hash(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hash(parts...))
}
