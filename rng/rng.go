// Package rng draws uniformly random scalars in [1, n-1] for the SM2
// group order n, via rejection sampling over crypto/rand, grounded on the
// teacher's sm2curve.RandScalar.
package rng

import (
	"crypto/rand"
	"io"

	"github.com/dromara/sm2cosign/internal/bigint"
	"github.com/dromara/sm2cosign/internal/curve"
)

// MaxAttempts bounds the rejection-sampling loop. A uniformly drawn
// 256-bit value lands outside [1, n-1] with probability roughly 2^-32,
// so 8 attempts leaves only a cryptographically negligible chance of
// exhausting the budget; beyond that, the entropy source itself is
// suspect and Scalar reports EntropyFailure rather than looping forever.
const MaxAttempts = 8

// ErrEntropyExhausted is returned when MaxAttempts rejection-sampling
// draws all land outside the valid scalar range, or the entropy source
// itself errors.
var ErrEntropyExhausted = errEntropyExhausted{}

type errEntropyExhausted struct{}

func (errEntropyExhausted) Error() string {
	return "rng: exhausted retry budget drawing a valid scalar"
}

// Scalar draws a scalar uniformly from [1, n-1] using random as the
// entropy source. A nil random defaults to crypto/rand.Reader.
func Scalar(random io.Reader) (bigint.Uint256, error) {
	if random == nil {
		random = rand.Reader
	}
	n := curve.CurveParams().N

	for i := 0; i < MaxAttempts; i++ {
		var buf [32]byte
		if _, err := io.ReadFull(random, buf[:]); err != nil {
			return bigint.Uint256{}, ErrEntropyExhausted
		}
		d := bigint.FromBytes(buf)
		if !d.IsZero() && d.Cmp(n) < 0 {
			return d, nil
		}
	}
	return bigint.Uint256{}, ErrEntropyExhausted
}
