// Package srp implements the client half of SRP-6a (spec.md §4.2, C2
// SrpEngine) as the remote identity service expects it: exact big-integer
// arithmetic over the fixed 3072-bit group in constants.go, HKDF-SHA256
// key derivation, and the independent device-SRP verifier generation used
// by the device-confirmation ceremony (spec.md §4.6.2).
//
// Structurally this follows the teacher's mitid.SRP — a small stateful
// struct holding the ephemeral keypair across the Stage1/Stage3-style
// calls a single handshake makes — generalized to the HKDF-based key
// schedule and padding rules the remote service actually requires instead
// of MitID's decimal-string hashing.
package srp

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"sync"

	"golang.org/x/crypto/hkdf"

	"cognitosrp/internal/bignum"
	"cognitosrp/internal/cogerr"
)

// Engine is a single-use SRP-6a client handshake (C2). Construct one per
// handshake attempt; discard it (win or lose) once the handshake that
// owns it completes or fails (spec.md §3, SrpState: "Single-use; dropped
// after the handshake it belongs to completes or fails").
type Engine struct {
	realmID  string
	paranoia int

	mu sync.Mutex
	a  *big.Int
	A  *big.Int
}

// NewEngine constructs an Engine for the given realm — the pool-id
// suffix for user-SRP, or the device_group_key for device-SRP (spec.md
// §4.2).
func NewEngine(realmID string, paranoia int) (*Engine, error) {
	if err := bignum.ValidateParanoia(paranoia); err != nil {
		return nil, cogerr.Crypto("invalid paranoia", err)
	}
	return &Engine{realmID: realmID, paranoia: paranoia}, nil
}

// LargeAValue returns A = g^a mod N, generating the ephemeral private
// key a on first call and memoising both across subsequent calls
// (spec.md §4.2: "idempotent memoised"). Regenerates a and retries if A
// happens to be 0 mod N — impossible with g=2 and 1<=a<N, but checked
// per spec.md §3's invariant.
func (e *Engine) LargeAValue() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.A != nil {
		return e.A, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		a, err := bignum.RandomInRange(N, e.paranoia)
		if err != nil {
			return nil, cogerr.Crypto("generating SRP private key a", err)
		}
		A := bignum.ModPow(g, a, N)
		if new(big.Int).Mod(A, N).Sign() == 0 {
			continue // spec.md §3 invariant: A != 0 mod N, regenerate a
		}
		e.a, e.A = a, A
		return A, nil
	}

	return nil, cogerr.New(cogerr.ErrCryptoFailure, "could not generate a nonzero SRP public value A")
}

// newEngineWithPrivateKey builds an Engine around a caller-supplied
// ephemeral private key a instead of one drawn from bignum.RandomInRange.
// Unexported: it exists only so tests can pin a down and check the whole
// PASSWORD_VERIFIER derivation against a known, committed fixture, since
// LargeAValue's random a would make every run produce a different S/key/
// proof.
func newEngineWithPrivateKey(realmID string, paranoia int, a *big.Int) (*Engine, error) {
	if err := bignum.ValidateParanoia(paranoia); err != nil {
		return nil, cogerr.Crypto("invalid paranoia", err)
	}
	A := bignum.ModPow(g, a, N)
	return &Engine{realmID: realmID, paranoia: paranoia, a: a, A: A}, nil
}

// littleK computes k = H(pad(N) || pad(g)) (spec.md §6).
func littleK() *big.Int {
	h := sha256.New()
	h.Write(bignum.Pad(N, nByteWidth))
	h.Write(bignum.Pad(g, nByteWidth))
	return new(big.Int).SetBytes(h.Sum(nil))
}

// computeU computes u = H(pad(A) || pad(B)), failing per spec.md §3's
// invariant ("u = H(A || B) != 0; if zero (vanishingly rare), abort the
// handshake") if the result is zero.
func computeU(A, B *big.Int) (*big.Int, error) {
	h := sha256.New()
	h.Write(bignum.Pad(A, nByteWidth))
	h.Write(bignum.Pad(B, nByteWidth))
	u := new(big.Int).SetBytes(h.Sum(nil))
	if u.Sign() == 0 {
		return nil, cogerr.New(cogerr.ErrCryptoFailure, "SRP scalar u is zero")
	}
	return u, nil
}

// computeX computes x = H(salt || H(realm ":" identifier ":" password)),
// spec.md §4.2.
func computeX(realmID, identifier, password string, salt *big.Int) *big.Int {
	inner := sha256.Sum256([]byte(realmID + ":" + identifier + ":" + password))

	outer := sha256.New()
	outer.Write(bignum.Pad(salt, nByteWidth))
	outer.Write(inner[:])

	return new(big.Int).SetBytes(outer.Sum(nil))
}

// PasswordAuthenticationKey derives the 16-byte HKDF key the
// PASSWORD_VERIFIER (or DEVICE_PASSWORD_VERIFIER) proof is built over
// (spec.md §4.2, C2). identifier is the SRP-canonical username for
// user-SRP, or the device key for device-SRP; password is the plaintext
// password for user-SRP, or the client-generated device random password
// for device-SRP.
func (e *Engine) PasswordAuthenticationKey(identifier, password string, serverB, salt *big.Int) ([]byte, error) {
	A, err := e.LargeAValue()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	a := e.a
	e.mu.Unlock()

	u, err := computeU(A, serverB)
	if err != nil {
		return nil, err
	}

	x := computeX(e.realmID, identifier, password, salt)

	// S = (B - k*g^x)^(a + u*x) mod N
	k := littleK()
	gx := bignum.ModPow(g, x, N)
	kgx := new(big.Int).Mod(new(big.Int).Mul(k, gx), N)
	base := bignum.ModSub(serverB, kgx, N)

	exp := new(big.Int).Add(a, new(big.Int).Mul(u, x))
	S := bignum.ModPow(base, exp, N)

	hk := hkdf.New(sha256.New, bignum.Pad(S, nByteWidth), bignum.Pad(u, nByteWidth), []byte(hkdfInfo))
	key := make([]byte, hkdfKeyLen)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, cogerr.Crypto("deriving HKDF session key", err)
	}
	return key, nil
}

// DeviceVerifier is the material generate_hash_device produces: the
// salt and verifier the device registration RPC needs, plus the random
// password the client must remember for every future device-bound login
// (spec.md §4.2, §4.6.2).
type DeviceVerifier struct {
	Salt           *big.Int
	Verifier       *big.Int
	RandomPassword string
}

// GenerateHashDevice runs the independent device-SRP verifier generation
// spec.md §4.2 describes: a fresh random password R, a fresh random
// salt, and g^x_dev mod N where x_dev mixes in (device_group_key,
// device_key, R).
func GenerateHashDevice(deviceGroupKey, deviceKey string) (*DeviceVerifier, error) {
	randomPasswordBytes, err := bignum.RandomInRange(N, bignum.DefaultParanoia)
	if err != nil {
		return nil, cogerr.Crypto("generating device random password", err)
	}
	randomPassword := fmt.Sprintf("%x", bignum.Pad(randomPasswordBytes, deviceRandomPasswordLen)[:deviceRandomPasswordLen])

	saltDevices, err := bignum.RandomInRange(new(big.Int).Lsh(big.NewInt(1), deviceSaltLen*8), bignum.DefaultParanoia)
	if err != nil {
		return nil, cogerr.Crypto("generating device salt", err)
	}

	inner := sha256.Sum256([]byte(deviceGroupKey + deviceKey + ":" + randomPassword))

	outer := sha256.New()
	outer.Write(bignum.Pad(saltDevices, deviceSaltLen))
	outer.Write(inner[:])
	xDev := new(big.Int).SetBytes(outer.Sum(nil))

	verifierDevices := bignum.ModPow(g, xDev, N)

	return &DeviceVerifier{
		Salt:           saltDevices,
		Verifier:       verifierDevices,
		RandomPassword: randomPassword,
	}, nil
}

// EncodeVerifierConfig base64-encodes the salt and verifier exactly as
// the confirmDevice RPC's DeviceSecretVerifierConfig payload requires
// (spec.md §4.6.2): the salt padded to the fixed device-salt width, the
// verifier padded to the group's byte width.
func (v *DeviceVerifier) EncodeVerifierConfig() (saltB64, verifierB64 string) {
	saltB64 = base64.StdEncoding.EncodeToString(bignum.Pad(v.Salt, deviceSaltLen))
	verifierB64 = base64.StdEncoding.EncodeToString(bignum.Pad(v.Verifier, nByteWidth))
	return saltB64, verifierB64
}
