package srp

import "math/big"

// hexN is the IETF 3072-bit MODP group (RFC 3526 Group 15) — the SRP-6a
// safe prime the remote identity service mandates (spec.md §4.1, §6).
// g = 2. Both are burned into the implementation, exactly as spec.md
// requires ("These constants are burned into the implementation").
const hexN = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E08" +
	"8A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6D" +
	"F25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6" +
	"F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8" +
	"A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356" +
	"208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E46" +
	"2E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6" +
	"955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFF" +
	"FFFFFFFF"

var (
	// N is the SRP safe-prime modulus.
	N *big.Int
	// g is the SRP generator.
	g = big.NewInt(2)
	// nByteWidth is the byte width every padded operand must be
	// stretched (or truncated) to before hashing.
	nByteWidth int
)

func init() {
	N = new(big.Int)
	if _, ok := N.SetString(hexN, 16); !ok {
		panic("srp: failed to parse fixed group modulus N")
	}
	nByteWidth = (N.BitLen() + 7) / 8
}

// hkdfInfo is the literal ASCII info string HKDF mixes into the derived
// key (spec.md §6).
const hkdfInfo = "Caldera Derived Key"

// hkdfKeyLen is the derived-key length in bytes (spec.md §6).
const hkdfKeyLen = 16

// deviceRandomPasswordLen is the length in bytes of the client-generated
// device password R (spec.md §4.2).
const deviceRandomPasswordLen = 40

// deviceSaltLen is the length in bytes of the device verifier salt.
const deviceSaltLen = 16
