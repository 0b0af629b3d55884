// Package bigint implements fixed-width 256-bit unsigned integer
// arithmetic modulo an arbitrary modulus, used by internal/curve for both
// the SM2 field prime p and the SM2 group order n.
//
// Values are stored as four 64-bit limbs in little-endian order (limbs[0]
// is the least significant). Add and Sub reduce their result with a
// constant-time conditional subtraction so that timing does not depend on
// whether the raw sum or difference overflowed the modulus. Mul reduces
// through math/big for the final 512-to-256 bit fold, the same shortcut
// the teacher's own field code takes (see its reduce512 TODO); a
// SM2-specific fast reduction is possible but not required for
// correctness.
package bigint

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// Uint256 is an unsigned 256-bit integer, little-endian limb order.
type Uint256 [4]uint64

// Zero is the additive identity.
var Zero = Uint256{}

// One is the multiplicative identity.
var One = Uint256{1, 0, 0, 0}

// FromBytes decodes a 32-byte big-endian buffer into a Uint256.
func FromBytes(b [32]byte) Uint256 {
	var x Uint256
	x[0] = binary.BigEndian.Uint64(b[24:32])
	x[1] = binary.BigEndian.Uint64(b[16:24])
	x[2] = binary.BigEndian.Uint64(b[8:16])
	x[3] = binary.BigEndian.Uint64(b[0:8])
	return x
}

// FromBigInt reduces x modulo nothing — it only left-pads x to 256 bits —
// callers that need a reduced value must call one of the *Mod functions
// below. Negative or nil inputs decode as zero; a value wider than 256
// bits is not truncated and makes big.Int.FillBytes panic.
func FromBigInt(x *big.Int) Uint256 {
	if x == nil || x.Sign() < 0 {
		return Uint256{}
	}
	var buf [32]byte
	x.FillBytes(buf[:])
	return FromBytes(buf)
}

// Bytes encodes x as a 32-byte big-endian buffer.
func (x Uint256) Bytes() [32]byte {
	var out [32]byte
	binary.BigEndian.PutUint64(out[24:32], x[0])
	binary.BigEndian.PutUint64(out[16:24], x[1])
	binary.BigEndian.PutUint64(out[8:16], x[2])
	binary.BigEndian.PutUint64(out[0:8], x[3])
	return out
}

// BigInt returns x as a *big.Int, for interop with code (tests, and
// MulMod's math/big reduction) that wants arbitrary-precision arithmetic.
func (x Uint256) BigInt() *big.Int {
	b := x.Bytes()
	return new(big.Int).SetBytes(b[:])
}

// IsZero reports whether x is the zero value.
func (x Uint256) IsZero() bool {
	return x[0]|x[1]|x[2]|x[3] == 0
}

// Cmp returns -1, 0 or 1 as x is less than, equal to, or greater than y.
// Comparison walks limbs from most to least significant and returns at the
// first differing limb, so its running time depends on the operands. Its
// callers in this module use it for range checks, on public values
// (signature components, point coordinates) and on secret scalars alike
// (rng.Scalar's draws, d1 and k1 in package cosign).
func (x Uint256) Cmp(y Uint256) int {
	for i := 3; i >= 0; i-- {
		if x[i] != y[i] {
			if x[i] > y[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// geq reports whether x >= y via a borrow-based subtraction, without the
// early-exit branching of Cmp — used on the constant-time reduction paths.
func geq(x, y Uint256) (Uint256, uint64) {
	var diff Uint256
	var borrow uint64
	diff[0], borrow = bits.Sub64(x[0], y[0], 0)
	diff[1], borrow = bits.Sub64(x[1], y[1], borrow)
	diff[2], borrow = bits.Sub64(x[2], y[2], borrow)
	diff[3], borrow = bits.Sub64(x[3], y[3], borrow)
	return diff, borrow
}

// selectU64 returns a if mask is all-ones, b if mask is all-zero.
func selectU64(mask, a, b uint64) uint64 {
	return (a & mask) | (b & ^mask)
}

// Select returns a if cond is true, b otherwise, without branching on
// operand contents — cond itself may be a public or secret predicate, but
// whichever value is chosen never influences control flow, only data flow.
func Select(cond bool, a, b Uint256) Uint256 {
	var mask uint64
	if cond {
		mask = ^uint64(0)
	}
	var out Uint256
	for i := range out {
		out[i] = selectU64(mask, a[i], b[i])
	}
	return out
}

// reduceOnce conditionally subtracts m from x if x >= m, in constant time.
func reduceOnce(x, m Uint256) Uint256 {
	diff, borrow := geq(x, m)
	mask := uint64(0) - (1 - borrow) // all-ones if x >= m (borrow == 0)
	var out Uint256
	for i := range out {
		out[i] = selectU64(mask, diff[i], x[i])
	}
	return out
}

// AddMod computes (a + b) mod m. Callers must ensure a, b are already in
// [0, m). Addition is performed as 257-bit arithmetic followed by a
// constant-time conditional subtraction of m.
func AddMod(a, b, m Uint256) Uint256 {
	var sum Uint256
	var carry uint64
	sum[0], carry = bits.Add64(a[0], b[0], 0)
	sum[1], carry = bits.Add64(a[1], b[1], carry)
	sum[2], carry = bits.Add64(a[2], b[2], carry)
	sum[3], carry = bits.Add64(a[3], b[3], carry)

	// Subtract m when the 257-bit sum is >= m: either it overflowed 256
	// bits (carry == 1) or the 256-bit part alone is >= m (no borrow).
	diff, borrow := geq(sum, m)
	mask := uint64(0) - (carry | (1 - borrow))
	for i := range sum {
		sum[i] = selectU64(mask, diff[i], sum[i])
	}
	return sum
}

// SubMod computes (a - b) mod m. Callers must ensure a, b are already in
// [0, m). A negative difference is corrected by a constant-time
// conditional addition of m.
func SubMod(a, b, m Uint256) Uint256 {
	var diff Uint256
	var borrow uint64
	diff[0], borrow = bits.Sub64(a[0], b[0], 0)
	diff[1], borrow = bits.Sub64(a[1], b[1], borrow)
	diff[2], borrow = bits.Sub64(a[2], b[2], borrow)
	diff[3], borrow = bits.Sub64(a[3], b[3], borrow)

	// Add back m masked by the borrow, so both outcomes do the same work.
	mask := uint64(0) - borrow
	var carry uint64
	diff[0], carry = bits.Add64(diff[0], m[0]&mask, 0)
	diff[1], carry = bits.Add64(diff[1], m[1]&mask, carry)
	diff[2], carry = bits.Add64(diff[2], m[2]&mask, carry)
	diff[3], _ = bits.Add64(diff[3], m[3]&mask, carry)
	return diff
}

// NegMod computes (-a) mod m.
func NegMod(a, m Uint256) Uint256 {
	if a.IsZero() {
		return Uint256{}
	}
	return SubMod(m, a, m)
}

// mul512 computes the full 512-bit product of a and b via schoolbook
// multiplication.
func mul512(a, b Uint256) [8]uint64 {
	var p [8]uint64
	for i := 0; i < 4; i++ {
		var carry uint64
		for j := 0; j < 4; j++ {
			hi, lo := bits.Mul64(a[i], b[j])
			var c uint64
			p[i+j], c = bits.Add64(p[i+j], lo, carry)
			carry = c
			p[i+j+1], c = bits.Add64(p[i+j+1], hi, carry)
			carry = c
			for k := i + j + 2; carry != 0 && k < 8; k++ {
				p[k], carry = bits.Add64(p[k], carry, 0)
			}
		}
	}
	return p
}

// MulMod computes (a * b) mod m. The 512-bit product is reduced with
// math/big — this is the one step the teacher leaves unreduced to a
// fixed-limb routine (its field.go carries the same shortcut), so we keep
// the same tradeoff here rather than hand-deriving a Barrett reduction for
// two different moduli.
func MulMod(a, b, m Uint256) Uint256 {
	p := mul512(a, b)
	var buf [64]byte
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint64(buf[56-i*8:64-i*8], p[i])
	}
	prod := new(big.Int).SetBytes(buf[:])
	prod.Mod(prod, m.BigInt())
	return FromBigInt(prod)
}

// ModInverse computes a^-1 mod m for prime m using Fermat's little
// theorem (a^(m-2) mod m), via a fixed-length square-and-multiply ladder
// over the public exponent m-2. Because m is a public, fixed curve
// parameter (p or n), branching on its bits does not leak anything about
// the secret base a — only the multiplications themselves touch a. Every
// exponent bit costs one squaring, plus one multiplication when the bit
// is 1; which bits are set is fixed by m alone.
func ModInverse(a, m Uint256) (Uint256, error) {
	if a.IsZero() {
		return Uint256{}, ErrZeroInverse
	}
	exp := SubMod(m, Uint256{2, 0, 0, 0}, m)
	// exp = m - 2, computed via modular subtraction since m >= 2 for both
	// SM2 moduli; this is equivalent to plain subtraction here but keeps
	// the result inside the same representation invariant as every other
	// value in this package.
	result := One
	base := a
	for i := 0; i < 256; i++ {
		limb := exp[i/64]
		bit := (limb >> uint(i%64)) & 1
		if bit == 1 {
			result = MulMod(result, base, m)
		}
		base = MulMod(base, base, m)
	}
	return result, nil
}

// ErrZeroInverse is returned by ModInverse when asked to invert zero.
var ErrZeroInverse = errZeroInverse{}

type errZeroInverse struct{}

func (errZeroInverse) Error() string { return "bigint: modular inverse of zero" }
