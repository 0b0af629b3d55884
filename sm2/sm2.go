// Package sm2 implements the standard (non-collaborative) SM2
// public-key operations defined in GB/T 32918: key generation, sign,
// verify, encrypt and decrypt. It is grounded on the teacher's
// crypto/internal/sm2 and crypto/sm2 packages, reworked onto this
// module's own internal/curve and internal/bigint primitives instead of
// crypto/elliptic and math/big.
package sm2

import (
	"errors"
	"io"

	"github.com/dromara/sm2cosign/internal/bigint"
	"github.com/dromara/sm2cosign/internal/curve"
	"github.com/dromara/sm2cosign/identity"
	"github.com/dromara/sm2cosign/kdf"
	"github.com/dromara/sm2cosign/rng"
	"github.com/dromara/sm2cosign/sm3"
)

// PrivateKey is an SM2 private key: a scalar d in [1, n-1] together with
// its derived public key P = d*G.
type PrivateKey struct {
	D   bigint.Uint256
	Pub PublicKey
}

// PublicKey is an SM2 public key: a curve point.
type PublicKey struct {
	Point curve.Affine
}

// ErrNilReader reports a missing entropy source. No function in this
// package returns it: every random draw goes through rng.Scalar, which
// substitutes crypto/rand.Reader for a nil reader, and a failing reader
// surfaces as a KindEntropyFailure error wrapping rng.ErrEntropyExhausted.
var ErrNilReader = errors.New("sm2: nil entropy source")

// GenerateKey creates a new random SM2 key pair.
func GenerateKey(random io.Reader) (*PrivateKey, error) {
	d, err := rng.Scalar(random)
	if err != nil {
		return nil, &KeyError{Kind: KindEntropyFailure, Err: err}
	}
	pub := curve.ScalarBaseMult(d)
	return &PrivateKey{D: d, Pub: PublicKey{Point: pub}}, nil
}

// PublicKeyFromBytes decodes and validates a 64-byte x||y public key.
func PublicKeyFromBytes(b [64]byte) (PublicKey, error) {
	p, ok := curve.AffineFromBytes(b)
	if !ok {
		return PublicKey{}, &KeyError{Kind: KindInvalidInput, Err: errors.New("public key not on curve")}
	}
	return PublicKey{Point: p}, nil
}

// Bytes encodes the public key as 64 octets x||y.
func (pub PublicKey) Bytes() [64]byte { return pub.Point.Bytes() }

// PrivateKeyFromScalar builds a private key from a raw 32-byte scalar,
// deriving its public key.
func PrivateKeyFromScalar(b [32]byte) (*PrivateKey, error) {
	d := bigint.FromBytes(b)
	n := curve.CurveParams().N
	if d.IsZero() || d.Cmp(n) >= 0 {
		return nil, &KeyError{Kind: KindInvalidInput, Err: errors.New("scalar out of range [1, n-1]")}
	}
	pub := curve.ScalarBaseMult(d)
	return &PrivateKey{D: d, Pub: PublicKey{Point: pub}}, nil
}

// Bytes encodes the private scalar as 32 big-endian octets.
func (priv *PrivateKey) Bytes() [32]byte { return priv.D.Bytes() }

const maxSignRetries = 8

// signAttempt computes one retry iteration of SM2 sign given the message
// scalar e, ephemeral scalar k, the ephemeral point's x-coordinate x1, and
// private scalar d. ok is false for the degenerate cases GB/T 32918.2
// §6.1 calls for a fresh k: r == 0, r + k == n, or s == 0 (and also when
// d + 1 has no inverse mod n). The r branches depend on x1, the x-coordinate of k*G, which a uniformly random
// k practically never drives to a degenerate value — split out as its own
// function so the branches can be exercised directly with contrived inputs
// instead of only through astronomically unlikely real draws.
func signAttempt(d, e, k, x1, n bigint.Uint256) (r, s bigint.Uint256, ok bool) {
	r = bigint.AddMod(e, x1, n)
	if r.IsZero() {
		return r, s, false
	}
	// r + k == n shows up as zero once the sum is reduced mod n.
	rk := bigint.AddMod(r, k, n)
	if rk.IsZero() {
		return r, s, false
	}

	dPlus1 := bigint.AddMod(d, bigint.One, n)
	dPlus1Inv, err := bigint.ModInverse(dPlus1, n)
	if err != nil {
		return r, s, false
	}
	rd := bigint.MulMod(r, d, n)
	kMinusRD := bigint.SubMod(k, rd, n)
	s = bigint.MulMod(dPlus1Inv, kMinusRD, n)
	if s.IsZero() {
		return r, s, false
	}
	return r, s, true
}

// Sign computes an SM2 signature over message under uid (the default
// identity is used if uid is empty), per GB/T 32918.2 §6.1. The bounded
// retry loop covers the degenerate cases signAttempt rejects, each of
// which occurs with negligible probability for a uniformly random k.
func Sign(priv *PrivateKey, message, uid []byte, random io.Reader) ([64]byte, error) {
	var out [64]byte
	e, err := hashForSign(priv.Pub.Point, message, uid)
	if err != nil {
		return out, &SignError{Kind: KindCryptoFailure, Err: err}
	}
	n := curve.CurveParams().N

	for attempt := 0; attempt < maxSignRetries; attempt++ {
		k, err := rng.Scalar(random)
		if err != nil {
			return out, &SignError{Kind: KindEntropyFailure, Err: err}
		}
		p := curve.ScalarBaseMult(k)
		r, s, ok := signAttempt(priv.D, e, k, p.X, n)
		if !ok {
			continue
		}

		rb := r.Bytes()
		sb := s.Bytes()
		copy(out[:32], rb[:])
		copy(out[32:], sb[:])
		return out, nil
	}
	return out, &SignError{Kind: KindCryptoFailure, Err: errors.New("exhausted retry budget")}
}

// Verify checks an SM2 signature over message under uid, per GB/T
// 32918.2 §7.1. It returns false (with no error) for a structurally
// valid signature that does not verify, and an error only for malformed
// input.
func Verify(pub PublicKey, message, uid []byte, sig [64]byte) (bool, error) {
	n := curve.CurveParams().N
	var rb, sb [32]byte
	copy(rb[:], sig[:32])
	copy(sb[:], sig[32:])
	r := bigint.FromBytes(rb)
	s := bigint.FromBytes(sb)

	if r.IsZero() || r.Cmp(n) >= 0 || s.IsZero() || s.Cmp(n) >= 0 {
		return false, &VerifyError{Kind: KindInvalidInput, Err: errors.New("r or s out of range [1, n-1]")}
	}

	e, err := hashForSign(pub.Point, message, uid)
	if err != nil {
		return false, &VerifyError{Kind: KindCryptoFailure, Err: err}
	}

	t := bigint.AddMod(r, s, n)
	if t.IsZero() {
		return false, nil
	}

	sg := curve.ScalarBaseMult(s)
	tp := curve.ScalarMult(t, pub.Point)
	sum := curve.Add(jacobianOf(sg), jacobianOf(tp))
	point := curve.ToAffine(sum)
	if point.Infinity {
		return false, nil
	}

	v := bigint.AddMod(e, point.X, n)
	return v.Cmp(r) == 0, nil
}

func jacobianOf(p curve.Affine) curve.Jacobian {
	if p.Infinity {
		return curve.Jacobian{}
	}
	return curve.Jacobian{X: p.X, Y: p.Y, Z: bigint.One}
}

func hashForSign(pub curve.Affine, message, uid []byte) (bigint.Uint256, error) {
	za, err := identity.ZA(uid, pub)
	if err != nil {
		return bigint.Uint256{}, err
	}
	h := sm3.New()
	h.Write(za[:])
	h.Write(message)
	digest := h.Sum(nil)
	var db [32]byte
	copy(db[:], digest)
	return bigint.FromBytes(db), nil
}

const maxEncryptRetries = 8

// Encrypt performs SM2 public-key encryption per GB/T 32918.4 §7.1,
// returning the C1C3C2-ordered ciphertext. The retry loop redraws k
// whenever the KDF output is all-zero (kdf.ErrAllZero) or the ephemeral
// point collapses to the point at infinity.
func Encrypt(pub PublicKey, plaintext []byte, random io.Reader) ([]byte, error) {
	for attempt := 0; attempt < maxEncryptRetries; attempt++ {
		k, err := rng.Scalar(random)
		if err != nil {
			return nil, &EncryptError{Kind: KindEntropyFailure, Err: err}
		}
		c1Point := curve.ScalarBaseMult(k)
		if c1Point.Infinity {
			continue
		}
		sPoint := curve.ScalarMult(k, pub.Point)
		if sPoint.Infinity {
			return nil, &EncryptError{Kind: KindCryptoFailure, Err: errors.New("public key has order dividing h")}
		}

		x2 := sPoint.X.Bytes()
		y2 := sPoint.Y.Bytes()
		t, err := kdf.Derive(len(plaintext), x2[:], y2[:])
		if errors.Is(err, kdf.ErrAllZero) {
			continue
		}
		if err != nil {
			return nil, &EncryptError{Kind: KindCryptoFailure, Err: err}
		}

		c2 := make([]byte, len(plaintext))
		for i := range plaintext {
			c2[i] = plaintext[i] ^ t[i]
		}

		h := sm3.New()
		h.Write(x2[:])
		h.Write(plaintext)
		h.Write(y2[:])
		c3 := h.Sum(nil)

		var c3Arr [32]byte
		copy(c3Arr[:], c3)
		c1 := c1Point.Bytes()

		out := make([]byte, 0, 64+32+len(c2))
		out = append(out, c1[:]...)
		out = append(out, c3Arr[:]...)
		out = append(out, c2...)
		return out, nil
	}
	return nil, &EncryptError{Kind: KindCryptoFailure, Err: errors.New("exhausted retry budget")}
}

// Decrypt performs SM2 private-key decryption of a C1C3C2-ordered
// ciphertext per GB/T 32918.4 §7.2.
func Decrypt(priv *PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 64+32 {
		return nil, &DecryptError{Kind: KindInvalidInput, Err: errors.New("ciphertext too short")}
	}
	var c1Bytes [64]byte
	copy(c1Bytes[:], ciphertext[:64])
	c3 := ciphertext[64:96]
	c2 := ciphertext[96:]

	c1Point, ok := curve.AffineFromBytes(c1Bytes)
	if !ok {
		return nil, &DecryptError{Kind: KindInvalidInput, Err: errors.New("C1 not on curve")}
	}

	sPoint := curve.ScalarMult(priv.D, c1Point)
	if sPoint.Infinity {
		return nil, &DecryptError{Kind: KindCryptoFailure, Err: errors.New("C1 has order dividing h")}
	}

	x2 := sPoint.X.Bytes()
	y2 := sPoint.Y.Bytes()
	t, err := kdf.Derive(len(c2), x2[:], y2[:])
	if err != nil {
		return nil, &DecryptError{Kind: KindCryptoFailure, Err: err}
	}

	plaintext := make([]byte, len(c2))
	for i := range c2 {
		plaintext[i] = c2[i] ^ t[i]
	}

	h := sm3.New()
	h.Write(x2[:])
	h.Write(plaintext)
	h.Write(y2[:])
	u := h.Sum(nil)
	if !constantTimeEqual(u, c3) {
		return nil, &DecryptError{Kind: KindCryptoFailure, Err: errors.New("MAC mismatch")}
	}
	return plaintext, nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
