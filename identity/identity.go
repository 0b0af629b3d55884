// Package identity computes the SM2 user identity hash prefix Z_A
// defined in GB/T 32918.2-2016 §5.5: SM3(ENTL_A || ID_A || a || b || x_G
// || y_G || x_A || y_A).
package identity

import (
	"github.com/dromara/sm2cosign/internal/curve"
	"github.com/dromara/sm2cosign/sm3"
)

// Default is the default user identifier used throughout GB/T 32918's
// worked examples when no application-specific ID is supplied.
const Default = "1234567812345678"

// ErrIDTooLong is returned when the identifier's bit length does not fit
// in the 16-bit ENTL field (GB/T 32918.2 bounds ID_A to 2^16 - 1 bits).
var ErrIDTooLong = errIDTooLong{}

type errIDTooLong struct{}

func (errIDTooLong) Error() string { return "identity: id exceeds 2^16-1 bits" }

// ZA computes the 32-byte Z_A value for the given identifier and public
// key. An empty id falls back to Default.
func ZA(id []byte, pub curve.Affine) ([32]byte, error) {
	var out [32]byte
	if len(id) == 0 {
		id = []byte(Default)
	}
	bitLen := uint64(len(id)) * 8
	if bitLen > 0xFFFF {
		return out, ErrIDTooLong
	}

	params := curve.CurveParams()
	coordLen := 32

	buf := make([]byte, 0, 2+len(id)+coordLen*6)
	entl := uint16(bitLen)
	buf = append(buf, byte(entl>>8), byte(entl))
	buf = append(buf, id...)

	aBytes := params.A.Bytes()
	bBytes := params.B.Bytes()
	gxBytes := params.Gx.Bytes()
	gyBytes := params.Gy.Bytes()
	pxBytes := pub.X.Bytes()
	pyBytes := pub.Y.Bytes()

	buf = append(buf, aBytes[:]...)
	buf = append(buf, bBytes[:]...)
	buf = append(buf, gxBytes[:]...)
	buf = append(buf, gyBytes[:]...)
	buf = append(buf, pxBytes[:]...)
	buf = append(buf, pyBytes[:]...)

	return sm3.Sum256(buf), nil
}
