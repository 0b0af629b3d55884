package rng

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dromara/sm2cosign/internal/bigint"
	"github.com/dromara/sm2cosign/internal/curve"
	"github.com/dromara/sm2cosign/internal/mock"
	"github.com/stretchr/testify/assert"
)

func TestScalarInRange(t *testing.T) {
	n := curve.CurveParams().N
	for i := 0; i < 20; i++ {
		k, err := Scalar(rand.Reader)
		assert.NoError(t, err)
		assert.False(t, k.IsZero())
		assert.Equal(t, -1, k.Cmp(n))
	}
}

func TestScalarNilDefaultsToCryptoRand(t *testing.T) {
	k, err := Scalar(nil)
	assert.NoError(t, err)
	assert.False(t, k.IsZero())
}

func TestScalarRejectsZeroThenSucceeds(t *testing.T) {
	var zero [32]byte
	one := bigint.One.Bytes()
	r := &mock.SequenceReader{Sequence: [][]byte{zero[:], one[:]}}

	k, err := Scalar(r)
	assert.NoError(t, err)
	assert.Equal(t, bigint.One, k)
}

func TestScalarRejectsOutOfRangeThenExhausts(t *testing.T) {
	var high [32]byte
	for i := range high {
		high[i] = 0xFF // n < 2^256 - 1, so 0xFF...FF is always out of range
	}
	seq := make([][]byte, MaxAttempts)
	for i := range seq {
		seq[i] = high[:]
	}
	r := &mock.SequenceReader{Sequence: seq}

	_, err := Scalar(r)
	assert.ErrorIs(t, err, ErrEntropyExhausted)
}

func TestScalarEntropySourceError(t *testing.T) {
	r := &mock.ErrorReader{Err: errors.New("no entropy")}
	_, err := Scalar(r)
	assert.ErrorIs(t, err, ErrEntropyExhausted)
}
