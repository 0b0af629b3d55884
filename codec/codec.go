// Package codec implements the fixed-width wire encodings for SM2
// scalars, points, signatures and ciphertexts, plus an optional ASN.1
// DER alternative for signatures and ciphertexts built on
// golang.org/x/crypto/cryptobyte, grounded on the teacher's
// crypto/internal/sm2 fromBytes/toBytes and crypto/internal/sm2curve
// ASN.1 helpers.
//
// The mandatory wire forms never use ASN.1 framing: a scalar is always
// 32 big-endian octets, a point is always 64 octets (x||y, no 0x04
// prefix), a signature is always 64 octets (r||s), and a ciphertext is
// always C1(64) || C3(32) || C2(len(M)) — GB/T 32918.4's C1C3C2 order.
package codec

import (
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ErrInvalidLength is returned when a fixed-width buffer has the wrong
// size for the value being decoded.
var ErrInvalidLength = errors.New("codec: invalid buffer length")

// ErrMalformedASN1 is returned when an ASN.1 DER buffer cannot be parsed
// into the expected shape.
var ErrMalformedASN1 = errors.New("codec: malformed ASN.1 structure")

// EncodeSignature packs (r, s) as 64 fixed-width octets.
func EncodeSignature(r, s [32]byte) [64]byte {
	var out [64]byte
	copy(out[:32], r[:])
	copy(out[32:], s[:])
	return out
}

// DecodeSignature unpacks 64 fixed-width octets into (r, s).
func DecodeSignature(sig []byte) (r, s [32]byte, err error) {
	if len(sig) != 64 {
		return r, s, ErrInvalidLength
	}
	copy(r[:], sig[:32])
	copy(s[:32], sig[32:])
	return r, s, nil
}

// EncodeCiphertext packs (c1, c3, c2) in GB/T 32918.4's C1C3C2 order: a
// 64-byte point, a 32-byte MAC, then the XOR-masked plaintext of
// arbitrary length.
func EncodeCiphertext(c1 [64]byte, c3 [32]byte, c2 []byte) []byte {
	out := make([]byte, 0, 64+32+len(c2))
	out = append(out, c1[:]...)
	out = append(out, c3[:]...)
	out = append(out, c2...)
	return out
}

// DecodeCiphertext splits a C1C3C2-ordered buffer back into its parts.
func DecodeCiphertext(buf []byte) (c1 [64]byte, c3 [32]byte, c2 []byte, err error) {
	if len(buf) < 64+32 {
		return c1, c3, nil, ErrInvalidLength
	}
	copy(c1[:], buf[:64])
	copy(c3[:], buf[64:96])
	c2 = append([]byte(nil), buf[96:]...)
	return c1, c3, c2, nil
}

// EncodeSignatureASN1 DER-encodes (r, s) as the ECDSA-shaped SEQUENCE
// { r INTEGER, s INTEGER }, an optional alternative wire form some GB/T
// 32918 deployments expect alongside the mandatory fixed-width one.
func EncodeSignatureASN1(r, s [32]byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(new(big.Int).SetBytes(r[:]))
		b.AddASN1BigInt(new(big.Int).SetBytes(s[:]))
	})
	return b.Bytes()
}

// DecodeSignatureASN1 parses the DER form produced by EncodeSignatureASN1.
func DecodeSignatureASN1(der []byte) (r, s [32]byte, err error) {
	input := cryptobyte.String(der)
	var inner cryptobyte.String
	if !input.ReadASN1(&inner, asn1.SEQUENCE) {
		return r, s, ErrMalformedASN1
	}
	var rBig, sBig big.Int
	if !inner.ReadASN1Integer(&rBig) || !inner.ReadASN1Integer(&sBig) {
		return r, s, ErrMalformedASN1
	}
	if rBig.Sign() < 0 || sBig.Sign() < 0 || rBig.BitLen() > 256 || sBig.BitLen() > 256 {
		return r, s, ErrMalformedASN1
	}
	rBig.FillBytes(r[:])
	sBig.FillBytes(s[:])
	return r, s, nil
}

// EncodeCiphertextASN1 DER-encodes a ciphertext as
// SEQUENCE { x1 INTEGER, y1 INTEGER, c3 OCTET STRING, c2 OCTET STRING },
// the layout the teacher's asn1_c1c3c2 mode produces.
func EncodeCiphertextASN1(c1 [64]byte, c3 [32]byte, c2 []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(new(big.Int).SetBytes(c1[:32]))
		b.AddASN1BigInt(new(big.Int).SetBytes(c1[32:]))
		b.AddASN1OctetString(c3[:])
		b.AddASN1OctetString(c2)
	})
	return b.Bytes()
}

// DecodeCiphertextASN1 parses the DER form produced by EncodeCiphertextASN1.
func DecodeCiphertextASN1(der []byte) (c1 [64]byte, c3 [32]byte, c2 []byte, err error) {
	input := cryptobyte.String(der)
	var inner cryptobyte.String
	if !input.ReadASN1(&inner, asn1.SEQUENCE) {
		return c1, c3, nil, ErrMalformedASN1
	}
	var x1, y1 big.Int
	var c3Str, c2Str cryptobyte.String
	if !inner.ReadASN1Integer(&x1) || !inner.ReadASN1Integer(&y1) {
		return c1, c3, nil, ErrMalformedASN1
	}
	if !inner.ReadASN1(&c3Str, asn1.OCTET_STRING) {
		return c1, c3, nil, ErrMalformedASN1
	}
	if !inner.ReadASN1(&c2Str, asn1.OCTET_STRING) {
		return c1, c3, nil, ErrMalformedASN1
	}
	if len(c3Str) != 32 {
		return c1, c3, nil, ErrMalformedASN1
	}
	if x1.Sign() < 0 || y1.Sign() < 0 || x1.BitLen() > 256 || y1.BitLen() > 256 {
		return c1, c3, nil, ErrMalformedASN1
	}
	x1.FillBytes(c1[:32])
	y1.FillBytes(c1[32:])
	copy(c3[:], c3Str)
	return c1, c3, []byte(c2Str), nil
}
