package sm2

import "fmt"

// ErrKind classifies a returned error into the taxonomy this module
// shares with the collaborative protocol's ABI boundary. It covers the
// original C header's INVALID_PARAM, CRYPTO and ENCODING buckets and adds
// KindEntropyFailure; it has no kind for the header's NULL_PTR code or
// for the transport-only ERR_NETWORK case, which has no meaning inside
// the cryptographic core.
type ErrKind int

const (
	// KindInvalidInput marks a caller-supplied argument that fails a
	// structural or range check (bad length, point not on curve, r/s
	// out of [1, n-1], and so on).
	KindInvalidInput ErrKind = iota
	// KindCryptoFailure marks a cryptographic operation rejecting its
	// input on cryptographic grounds: signature/MAC mismatch, a
	// degenerate scalar surviving every retry attempt.
	KindCryptoFailure
	// KindEntropyFailure marks exhaustion or failure of the random
	// source backing key/nonce generation.
	KindEntropyFailure
	// KindEncodingFailure marks a malformed wire encoding.
	KindEncodingFailure
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindCryptoFailure:
		return "crypto_failure"
	case KindEntropyFailure:
		return "entropy_failure"
	case KindEncodingFailure:
		return "encoding_failure"
	default:
		return "unknown"
	}
}

// SignError wraps a failure from Sign.
type SignError struct {
	Kind ErrKind
	Err  error
}

func (e *SignError) Error() string {
	return fmt.Sprintf("sm2: failed to sign: %v", e.Err)
}

func (e *SignError) Unwrap() error { return e.Err }

// VerifyError wraps a failure from Verify (distinct from Verify simply
// returning false for a structurally valid but cryptographically
// incorrect signature).
type VerifyError struct {
	Kind ErrKind
	Err  error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("sm2: failed to verify: %v", e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// EncryptError wraps a failure from Encrypt.
type EncryptError struct {
	Kind ErrKind
	Err  error
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("sm2: failed to encrypt: %v", e.Err)
}

func (e *EncryptError) Unwrap() error { return e.Err }

// DecryptError wraps a failure from Decrypt.
type DecryptError struct {
	Kind ErrKind
	Err  error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("sm2: failed to decrypt: %v", e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

// KeyError wraps a failure constructing or validating a key.
type KeyError struct {
	Kind ErrKind
	Err  error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("sm2: invalid key: %v", e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }
