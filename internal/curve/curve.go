// Package curve implements short Weierstrass point arithmetic over the
// SM2 recommended curve (GB/T 32918.5), in Jacobian coordinates with a
// constant-time scalar ladder.
//
// The point-add/point-double formulas are adapted from the teacher's
// crypto/internal/sm2curve package (pointAddField/pointDoubleField), but
// scalar multiplication is rewritten as a fixed-iteration Montgomery
// ladder instead of the teacher's variable-length wNAF: spec.md §4.2
// requires that the number of group operations not depend on the
// scalar's Hamming weight, which a wNAF table walk does not guarantee.
package curve

import (
	"math/big"

	"github.com/dromara/sm2cosign/internal/bigint"
)

// Params are the frozen SM2 curve parameters: p (field prime), a, b (curve
// coefficients), n (group order), and G = (Gx, Gy) (base point).
type Params struct {
	P, A, B, N Uint
	Gx, Gy     Uint
}

// Uint is an alias kept local to this package's public surface so callers
// don't need to import internal/bigint directly.
type Uint = bigint.Uint256

var params Params

func init() {
	hex := func(s string) Uint {
		v, ok := new(big.Int).SetString(s, 16)
		if !ok {
			panic("curve: bad constant " + s)
		}
		return bigint.FromBigInt(v)
	}
	p := hex("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF")
	params = Params{
		P: p,
		A: bigint.SubMod(p, Uint{3, 0, 0, 0}, p), // a = p - 3
		B: hex("28E9FA9E9D9F5E344D5A9E4BCF6509A7F39789F515AB8F92DDBCBD414D940E93"),
		N: hex("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123"),
		Gx: hex("32C4AE2C1F1981195F9904466A39C9948FE30BBFF2660BE1715A4589334C74C7"),
		Gy: hex("BC3736A2F4F6779C59BDCEE36B692153D0A9877CC62A474002DF32E52139F0A0"),
	}
}

// CurveParams returns the frozen SM2 curve parameters.
func CurveParams() Params { return params }

// Jacobian is a point in Jacobian projective coordinates: affine (x, y) =
// (X/Z^2, Y/Z^3). The zero value (Z == 0) represents the point at
// infinity.
type Jacobian struct {
	X, Y, Z Uint
}

// Affine is a point in affine coordinates. Infinity is true for the point
// at infinity, which has no valid (X, Y) representation on the wire.
type Affine struct {
	X, Y     Uint
	Infinity bool
}

// Infinity is the distinguished point at infinity O.
var Infinity = Affine{Infinity: true}

// IsOnCurve reports whether p satisfies y^2 = x^3 + a*x + b (mod p) and
// has coordinates strictly less than p. The point at infinity is never
// "on curve" in this sense — callers must check Infinity separately.
func IsOnCurve(p Affine) bool {
	if p.Infinity {
		return false
	}
	if p.X.Cmp(params.P) >= 0 || p.Y.Cmp(params.P) >= 0 {
		return false
	}
	y2 := bigint.MulMod(p.Y, p.Y, params.P)
	x3 := bigint.MulMod(bigint.MulMod(p.X, p.X, params.P), p.X, params.P)
	ax := bigint.MulMod(params.A, p.X, params.P)
	rhs := bigint.AddMod(x3, ax, params.P)
	rhs = bigint.AddMod(rhs, params.B, params.P)
	return y2.Cmp(rhs) == 0
}

func toJacobian(p Affine) Jacobian {
	if p.Infinity {
		return Jacobian{}
	}
	return Jacobian{X: p.X, Y: p.Y, Z: bigint.One}
}

func (p Jacobian) isInfinity() bool {
	return p.Z.IsZero()
}

// ToAffine converts a Jacobian point back to affine form.
func ToAffine(p Jacobian) Affine {
	if p.isInfinity() {
		return Infinity
	}
	zInv, _ := bigint.ModInverse(p.Z, params.P)
	zInv2 := bigint.MulMod(zInv, zInv, params.P)
	zInv3 := bigint.MulMod(zInv2, zInv, params.P)
	return Affine{
		X: bigint.MulMod(p.X, zInv2, params.P),
		Y: bigint.MulMod(p.Y, zInv3, params.P),
	}
}

// Add computes p1 + p2 in Jacobian coordinates (complete formula handling
// both operands possibly being the point at infinity, and doubling when
// p1 == p2).
func Add(p1, p2 Jacobian) Jacobian {
	if p1.isInfinity() {
		return p2
	}
	if p2.isInfinity() {
		return p1
	}
	P := params.P
	z1z1 := bigint.MulMod(p1.Z, p1.Z, P)
	z2z2 := bigint.MulMod(p2.Z, p2.Z, P)
	u1 := bigint.MulMod(p1.X, z2z2, P)
	u2 := bigint.MulMod(p2.X, z1z1, P)
	s1 := bigint.MulMod(p1.Y, bigint.MulMod(p2.Z, z2z2, P), P)
	s2 := bigint.MulMod(p2.Y, bigint.MulMod(p1.Z, z1z1, P), P)

	h := bigint.SubMod(u2, u1, P)
	r := bigint.SubMod(s2, s1, P)

	if h.IsZero() {
		if r.IsZero() {
			return Double(p1)
		}
		return Jacobian{}
	}

	hh := bigint.MulMod(h, h, P)
	hhh := bigint.MulMod(h, hh, P)
	v := bigint.MulMod(u1, hh, P)

	rr := bigint.MulMod(r, r, P)
	x3 := bigint.SubMod(rr, hhh, P)
	x3 = bigint.SubMod(x3, bigint.AddMod(v, v, P), P)

	y3 := bigint.MulMod(r, bigint.SubMod(v, x3, P), P)
	y3 = bigint.SubMod(y3, bigint.MulMod(s1, hhh, P), P)

	z3 := bigint.MulMod(bigint.MulMod(p1.Z, p2.Z, P), h, P)

	return Jacobian{X: x3, Y: y3, Z: z3}
}

// Double computes 2*p in Jacobian coordinates, specialized for a = p - 3
// the way the teacher's pointDoubleField is.
func Double(p Jacobian) Jacobian {
	if p.isInfinity() || p.Y.IsZero() {
		return Jacobian{}
	}
	P := params.P
	yy := bigint.MulMod(p.Y, p.Y, P)
	cc := bigint.MulMod(yy, yy, P)

	xyy := bigint.MulMod(p.X, yy, P)
	s := bigint.AddMod(xyy, xyy, P)
	s = bigint.AddMod(s, s, P)

	zz := bigint.MulMod(p.Z, p.Z, P)
	xMinusZZ := bigint.SubMod(p.X, zz, P)
	xPlusZZ := bigint.AddMod(p.X, zz, P)
	mTerm := bigint.MulMod(xMinusZZ, xPlusZZ, P)
	m := bigint.AddMod(mTerm, mTerm, P)
	m = bigint.AddMod(m, mTerm, P)

	mm := bigint.MulMod(m, m, P)
	twoS := bigint.AddMod(s, s, P)
	x3 := bigint.SubMod(mm, twoS, P)

	sMinusX3 := bigint.SubMod(s, x3, P)
	y3 := bigint.MulMod(m, sMinusX3, P)
	eightC := bigint.AddMod(cc, cc, P)
	eightC = bigint.AddMod(eightC, eightC, P)
	eightC = bigint.AddMod(eightC, eightC, P)
	y3 = bigint.SubMod(y3, eightC, P)

	yz := bigint.MulMod(p.Y, p.Z, P)
	z3 := bigint.AddMod(yz, yz, P)

	return Jacobian{X: x3, Y: y3, Z: z3}
}

// ScalarMult computes k*P for an arbitrary point P, using a
// fixed-iteration (256-round) Montgomery ladder: every bit of k causes
// exactly one add and two doubles, with a constant-time selection
// choosing which results become the new accumulators. k = 0 or P = infinity
// both yield the point at infinity.
func ScalarMult(k Uint, p Affine) Affine {
	if p.Infinity || k.IsZero() {
		return Infinity
	}
	base := toJacobian(p)
	r0 := Jacobian{} // infinity
	r1 := base

	for i := 255; i >= 0; i-- {
		bit := (k[i/64] >> uint(i%64)) & 1
		r0, r1 = ladderStep(bit, r0, r1)
	}
	return ToAffine(r0)
}

// ladderStep performs one Montgomery-ladder round: if bit == 0, (r0, r1)
// becomes (2*r0, r0+r1); if bit == 1, it becomes (r0+r1, 2*r1). Both
// branches of work happen unconditionally; only the final assignment is
// selected, so timing does not depend on the scalar's bits.
func ladderStep(bit uint64, r0, r1 Jacobian) (Jacobian, Jacobian) {
	sum := Add(r0, r1)
	d0 := Double(r0)
	d1 := Double(r1)

	cond := bit == 1
	newR0 := selectJacobian(cond, sum, d0)
	newR1 := selectJacobian(cond, d1, sum)
	return newR0, newR1
}

func selectJacobian(cond bool, a, b Jacobian) Jacobian {
	return Jacobian{
		X: bigint.Select(cond, a.X, b.X),
		Y: bigint.Select(cond, a.Y, b.Y),
		Z: bigint.Select(cond, a.Z, b.Z),
	}
}

// ScalarBaseMult computes k*G.
func ScalarBaseMult(k Uint) Affine {
	return ScalarMult(k, Affine{X: params.Gx, Y: params.Gy})
}

// AffineFromBytes decodes a 64-octet x||y buffer into an affine point and
// validates it lies on the curve, per spec.md §4.2: every point
// deserialized from the wire must pass IsOnCurve.
func AffineFromBytes(b [64]byte) (Affine, bool) {
	var xb, yb [32]byte
	copy(xb[:], b[:32])
	copy(yb[:], b[32:])
	p := Affine{X: bigint.FromBytes(xb), Y: bigint.FromBytes(yb)}
	if !IsOnCurve(p) {
		return Affine{}, false
	}
	return p, true
}

// Bytes encodes an affine point as 64 octets x||y. The point at infinity
// has no wire representation and Bytes panics if asked to encode one —
// callers must check Infinity before serializing.
func (p Affine) Bytes() [64]byte {
	if p.Infinity {
		panic("curve: point at infinity has no wire encoding")
	}
	var out [64]byte
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[:32], xb[:])
	copy(out[32:], yb[:])
	return out
}
