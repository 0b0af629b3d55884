// Package sm3 implements the SM3 cryptographic hash algorithm (GB/T
// 32905-2016), exposing the standard library's hash.Hash interface.
package sm3

import (
	"encoding/binary"
	"hash"
)

const (
	// Size is the size of an SM3 checksum in bytes.
	Size = 32
	// BlockSize is the block size of SM3 in bytes.
	BlockSize = 64
)

var (
	initialHash = [8]uint32{
		0x7380166f, 0x4914b2b9, 0x172442d7, 0xda8a0600,
		0xa96f30bc, 0x163138aa, 0xe38dee4d, 0xb0fb0e4e,
	}

	tj0 = uint32(0x79cc4519)
	tj1 = uint32(0x7a879d8a)
)

// digest represents the partial evaluation of an SM3 checksum.
type digest struct {
	h      [8]uint32
	length uint64
	data   []byte
}

// New returns a new hash.Hash computing the SM3 checksum.
func New() hash.Hash {
	d := &digest{}
	d.Reset()
	return d
}

// Sum256 returns the SM3 checksum of data as a fixed-size array, for
// callers that don't need streaming Write.
func Sum256(data []byte) [Size]byte {
	d := New()
	_, _ = d.Write(data)
	var out [Size]byte
	copy(out[:], d.Sum(nil))
	return out
}

func (d *digest) Reset() {
	copy(d.h[:], initialHash[:])
	d.length = 0
	d.data = d.data[:0]
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return BlockSize }

func (d *digest) Write(p []byte) (int, error) {
	toWrite := len(p)
	d.length += uint64(len(p) * 8)
	data := append(d.data, p...)
	d.update(data)
	d.data = data[len(data)/BlockSize*BlockSize:]
	return toWrite, nil
}

func (d *digest) Sum(in []byte) []byte {
	clone := *d
	data := clone.update2(clone.pad())

	needed := clone.Size()
	if cap(in)-len(in) < needed {
		newIn := make([]byte, len(in), len(in)+needed)
		copy(newIn, in)
		in = newIn
	}
	out := in[len(in) : len(in)+needed]
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint32(out[i*4:], data[i])
	}
	return in[:len(in)+needed]
}

func (d *digest) pad() []byte {
	estimatedSize := len(d.data) + 1 + 8
	if len(d.data)%BlockSize >= 56 {
		estimatedSize += BlockSize - (len(d.data) % BlockSize)
	}

	data := make([]byte, 0, estimatedSize)
	data = append(data, d.data...)
	data = append(data, 0x80)

	for len(data)%BlockSize != 56 {
		data = append(data, 0x00)
	}

	lengthBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(lengthBytes, d.length)
	data = append(data, lengthBytes...)

	return data
}

func (d *digest) update(msg []byte) {
	d.processBlocks(msg, false)
}

func (d *digest) update2(msg []byte) [8]uint32 {
	return d.processBlocks(msg, true)
}

func (d *digest) processBlocks(msg []byte, returnFinal bool) [8]uint32 {
	var w [68]uint32
	var w1 [64]uint32

	a, b, c, dd, e, f, g, h := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7]

	for len(msg) >= BlockSize {
		for i := 0; i < 16; i++ {
			w[i] = binary.BigEndian.Uint32(msg[4*i : 4*(i+1)])
		}

		for i := 16; i < 68; i++ {
			w[i] = p1(w[i-16]^w[i-9]^leftRotate(w[i-3], 15)) ^ leftRotate(w[i-13], 7) ^ w[i-6]
		}

		for i := 0; i < 64; i++ {
			w1[i] = w[i] ^ w[i+4]
		}

		A, B, C, D, E, F, G, H := a, b, c, dd, e, f, g, h

		for i := 0; i < 16; i++ {
			SS1 := leftRotate(leftRotate(A, 12)+E+leftRotate(tj0, uint32(i)), 7)
			SS2 := SS1 ^ leftRotate(A, 12)
			TT1 := ff0(A, B, C) + D + SS2 + w1[i]
			TT2 := gg0(E, F, G) + H + SS1 + w[i]
			D = C
			C = leftRotate(B, 9)
			B = A
			A = TT1
			H = G
			G = leftRotate(F, 19)
			F = E
			E = p0(TT2)
		}

		for i := 16; i < 64; i++ {
			SS1 := leftRotate(leftRotate(A, 12)+E+leftRotate(tj1, uint32(i)), 7)
			SS2 := SS1 ^ leftRotate(A, 12)
			TT1 := ff1(A, B, C) + D + SS2 + w1[i]
			TT2 := gg1(E, F, G) + H + SS1 + w[i]
			D = C
			C = leftRotate(B, 9)
			B = A
			A = TT1
			H = G
			G = leftRotate(F, 19)
			F = E
			E = p0(TT2)
		}

		a ^= A
		b ^= B
		c ^= C
		dd ^= D
		e ^= E
		f ^= F
		g ^= G
		h ^= H

		msg = msg[BlockSize:]
	}

	if returnFinal {
		return [8]uint32{a, b, c, dd, e, f, g, h}
	}
	d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7] = a, b, c, dd, e, f, g, h
	return [8]uint32{}
}

func leftRotate(x uint32, i uint32) uint32 {
	return x<<(i%32) | x>>(32-i%32)
}

func ff0(x, y, z uint32) uint32 {
	return x ^ y ^ z
}

func ff1(x, y, z uint32) uint32 {
	return (x & y) | (x & z) | (y & z)
}

func gg0(x, y, z uint32) uint32 {
	return x ^ y ^ z
}

func gg1(x, y, z uint32) uint32 {
	return (x & y) | (^x & z)
}

func p0(x uint32) uint32 {
	return x ^ leftRotate(x, 9) ^ leftRotate(x, 17)
}

func p1(x uint32) uint32 {
	return x ^ leftRotate(x, 15) ^ leftRotate(x, 23)
}
