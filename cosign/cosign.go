// Package cosign implements the client-side half of a two-party SM2
// collaborative signing and decryption protocol: the client contributes
// a private share d1 and an ephemeral share k1 but never learns the
// server's d2, k2, or any quantity from which the full private key or
// nonce could be recovered.
//
// There is no direct teacher equivalent for this split-key protocol;
// the function schedule and error taxonomy are grounded on
// original_source/sm2_co_sign_ffi.h, and the arithmetic reuses this
// module's own internal/curve, sm3 and kdf packages the same way
// package sm2 does.
package cosign

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

// GenerateD1 samples the client's private key share d1 uniformly from
// [1, n-1].
func GenerateD1(random io.Reader) ([32]byte, error) {
	d1, err := rng.Scalar(random)
	if err != nil {
		return [32]byte{}, &ProtocolError{Op: "generate_d1", Kind: KindEntropyFailure, Err: err}
	}
	return d1.Bytes(), nil
}

// CalculateP1 returns P1 = d1*G, the client's public contribution to
// joint key agreement.
func CalculateP1(d1 [32]byte) ([64]byte, error) {
	scalar := bigint.FromBytes(d1)
	n := curve.CurveParams().N
	if scalar.IsZero() || scalar.Cmp(n) >= 0 {
		return [64]byte{}, &ProtocolError{Op: "calculate_p1", Kind: KindInvalidInput, Err: errors.New("d1 out of range [1, n-1]")}
	}
	p1 := curve.ScalarBaseMult(scalar)
	return p1.Bytes(), nil
}

// SignPrepare samples the client's ephemeral share k1 and returns it
// along with Q1 = k1*G, both of which are sent to the server so it can
// complete its half of the joint ephemeral point.
func SignPrepare(random io.Reader) (k1 [32]byte, q1 [64]byte, err error) {
	scalar, err := rng.Scalar(random)
	if err != nil {
		return k1, q1, &ProtocolError{Op: "sign_prepare", Kind: KindEntropyFailure, Err: err}
	}
	q1Point := curve.ScalarBaseMult(scalar)
	return scalar.Bytes(), q1Point.Bytes(), nil
}

// HashMessage computes e = SM3(Z_A || message). When publicKey is nil,
// it falls back to Z_A computed over the point at infinity under the
// default identity — a placeholder kept only for API parity with the
// original FFI schedule. That fallback's output is NOT cryptographically
// meaningful: Z_A is supposed to bind the message hash to the real joint
// public key, and no placeholder substitutes for it. Callers SHOULD
// always supply the joint public key; treat the no-key path as
// diagnostic-only, never as an input to an actual signature or
// verification.
func HashMessage(message []byte, publicKey *[64]byte) ([32]byte, error) {
	var pub curve.Affine
	if publicKey != nil {
		p, ok := curve.AffineFromBytes(*publicKey)
		if !ok {
			return [32]byte{}, &ProtocolError{Op: "hash_message", Kind: KindInvalidInput, Err: errors.New("public key not on curve")}
		}
		pub = p
	} else {
		pub = curve.Affine{Infinity: true}
	}

	za, err := identity.ZA(nil, pub)
	if err != nil {
		return [32]byte{}, &ProtocolError{Op: "hash_message", Kind: KindCryptoFailure, Err: err}
	}
	h := sm3.New()
	h.Write(za[:])
	h.Write(message)
	var e [32]byte
	copy(e[:], h.Sum(nil))
	return e, nil
}

// CompleteSignature finishes the signature given the server's partial
// results r, s2, s3 (computed from the server's d2 and its ephemeral
// shares k2, k3 against the joint ephemeral point k1*G + k2*G):
// s = (d1*k1*s2 + d1*s3 - r) mod n. Returns (R, S) = (r, s) as 32-octet big-endian values.
func CompleteSignature(k1, d1, r, s2, s3 [32]byte) (sig [64]byte, err error) {
	n := curve.CurveParams().N
	d1s := bigint.FromBytes(d1)
	k1s := bigint.FromBytes(k1)
	rs := bigint.FromBytes(r)
	s2s := bigint.FromBytes(s2)
	s3s := bigint.FromBytes(s3)

	if d1s.IsZero() || d1s.Cmp(n) >= 0 || k1s.Cmp(n) >= 0 || rs.Cmp(n) >= 0 {
		return sig, &ProtocolError{Op: "complete_signature", Kind: KindInvalidInput, Err: errors.New("scalar out of range")}
	}

	d1k1 := bigint.MulMod(d1s, k1s, n)
	d1k1s2 := bigint.MulMod(d1k1, s2s, n)
	d1s3 := bigint.MulMod(d1s, s3s, n)
	sum := bigint.AddMod(d1k1s2, d1s3, n)
	s := bigint.SubMod(sum, rs, n)

	nMinusR := bigint.NegMod(rs, n)
	if s.IsZero() || s.Cmp(nMinusR) == 0 {
		return sig, &ProtocolError{Op: "complete_signature", Kind: KindCryptoFailure, Err: errors.New("degenerate s: zero or n-r")}
	}

	rb := r
	sb := s.Bytes()
	copy(sig[:32], rb[:])
	copy(sig[32:], sb[:])
	return sig, nil
}

// DecryptPrepare computes T1 = d1^-1 * C1 (mod n, via scalar
// multiplication by the modular inverse of d1), after validating that
// C1 lies on the curve. T1 is sent to the server, which returns
// T2 = d2^-1*T1 - C1.
func DecryptPrepare(d1 [32]byte, c1 [64]byte) (t1 [64]byte, err error) {
	n := curve.CurveParams().N
	d1s := bigint.FromBytes(d1)
	if d1s.IsZero() || d1s.Cmp(n) >= 0 {
		return t1, &ProtocolError{Op: "decrypt_prepare", Kind: KindInvalidInput, Err: errors.New("d1 out of range [1, n-1]")}
	}

	c1Point, ok := curve.AffineFromBytes(c1)
	if !ok {
		return t1, &ProtocolError{Op: "decrypt_prepare", Kind: KindInvalidInput, Err: errors.New("C1 not on curve")}
	}

	d1Inv, err := bigint.ModInverse(d1s, n)
	if err != nil {
		return t1, &ProtocolError{Op: "decrypt_prepare", Kind: KindCryptoFailure, Err: err}
	}

	t1Point := curve.ScalarMult(d1Inv, c1Point)
	if t1Point.Infinity {
		return t1, &ProtocolError{Op: "decrypt_prepare", Kind: KindCryptoFailure, Err: errors.New("T1 collapsed to infinity")}
	}
	return t1Point.Bytes(), nil
}

// CompleteDecryption finishes decryption given the server's T2 (the
// recovered k*P point), recomputing the mask and verifying the
// integrity tag exactly as package sm2's Decrypt does.
func CompleteDecryption(t2 [64]byte, c3 [32]byte, c2 []byte) ([]byte, error) {
	t2Point, ok := curve.AffineFromBytes(t2)
	if !ok {
		return nil, &ProtocolError{Op: "complete_decryption", Kind: KindInvalidInput, Err: errors.New("T2 not on curve")}
	}

	x2 := t2Point.X.Bytes()
	y2 := t2Point.Y.Bytes()
	t, err := kdf.Derive(len(c2), x2[:], y2[:])
	if err != nil {
		return nil, &ProtocolError{Op: "complete_decryption", Kind: KindCryptoFailure, Err: err}
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
	if !constantTimeEqual(u, c3[:]) {
		return nil, &ProtocolError{Op: "complete_decryption", Kind: KindCryptoFailure, Err: errors.New("MAC mismatch")}
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
