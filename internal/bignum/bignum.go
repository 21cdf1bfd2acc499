// Package bignum provides the modular arithmetic primitives the SRP-6a
// handshake is built on: modular exponentiation, modular subtraction, and
// blinded random scalar generation in [1, N).
package bignum

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ModPow computes base^exp mod modulus. modulus must be positive.
func ModPow(base, exp, modulus *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, modulus)
}

// ModSub computes (a - b) mod modulus, returning a value in [0, modulus).
// big.Int's Mod already normalizes negative results into that range, but
// we call it out explicitly since the SRP session-key derivation depends
// on it.
func ModSub(a, b, modulus *big.Int) *big.Int {
	diff := new(big.Int).Sub(a, b)
	return diff.Mod(diff, modulus)
}

// Paranoia bounds, per spec.md §9: acceptable range 0..10, default 7.
const (
	MinParanoia     = 0
	MaxParanoia     = 10
	DefaultParanoia = 7
)

// ValidateParanoia rejects values outside [MinParanoia, MaxParanoia].
func ValidateParanoia(paranoia int) error {
	if paranoia < MinParanoia || paranoia > MaxParanoia {
		return fmt.Errorf("paranoia %d out of range [%d, %d]", paranoia, MinParanoia, MaxParanoia)
	}
	return nil
}

// RandomInRange returns a uniformly distributed value in [1, modulus).
// paranoia controls how many independent crypto/rand samples are folded
// together (XOR'd) before reduction: higher paranoia survives a bigger
// class of single-draw RNG weaknesses at the cost of extra draws. A
// paranoia of 0 still makes exactly one draw — it never skips the call to
// crypto/rand, it just folds in no extra entropy.
func RandomInRange(modulus *big.Int, paranoia int) (*big.Int, error) {
	if err := ValidateParanoia(paranoia); err != nil {
		return nil, err
	}
	if modulus.Sign() <= 0 {
		return nil, fmt.Errorf("modulus must be positive")
	}

	upper := new(big.Int).Sub(modulus, big.NewInt(1)) // exclusive upper bound for [0, modulus-1)
	if upper.Sign() <= 0 {
		return nil, fmt.Errorf("modulus too small")
	}

	folded := new(big.Int)
	for i := 0; i <= paranoia; i++ {
		sample, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return nil, fmt.Errorf("reading random scalar: %w", err)
		}
		folded.Xor(folded, sample)
	}
	folded.Mod(folded, upper)

	// Shift into [1, modulus) instead of [0, modulus-1).
	return folded.Add(folded, big.NewInt(1)), nil
}

// Pad left-zero-pads the big-endian bytes of x to exactly width bytes.
// SRP's hashes (u, the session-key HKDF salt/IKM) are only bit-for-bit
// reproducible against the server if every operand is padded to the byte
// width of N before hashing.
func Pad(x *big.Int, width int) []byte {
	raw := x.Bytes()
	if len(raw) >= width {
		return raw[len(raw)-width:]
	}
	out := make([]byte, width)
	copy(out[width-len(raw):], raw)
	return out
}
