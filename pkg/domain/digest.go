package domain

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

// DigestSize is the length in bytes of a document digest (Keccak-256 output).
const DigestSize = 32

// Digest is the fixed-length hash standing in for a document. The core never
// sees document bytes, only digests.
type Digest [DigestSize]byte

// ParseDigest decodes the wire form: 64 hex digits with an optional 0x prefix.
// The zero digest is rejected; it can never be issued.
func ParseDigest(s string) (Digest, error) {
	d, err := decodeDigest(s)
	if err != nil {
		return Digest{}, err
	}
	if d.IsZero() {
		return Digest{}, dErrors.New(dErrors.CodeInvalidDigest, "digest must not be zero")
	}
	return d, nil
}

// ParseCandidateDigest is ParseDigest for a verification candidate. A
// well-formed zero candidate is accepted: it never matches a stored digest, so
// verify answers it like any other mismatch or with no_credential.
func ParseCandidateDigest(s string) (Digest, error) {
	return decodeDigest(s)
}

func decodeDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 2*DigestSize {
		return Digest{}, dErrors.New(dErrors.CodeInvalidDigest, "digest must be 32 bytes hex encoded")
	}
	var d Digest
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, dErrors.New(dErrors.CodeInvalidDigest, "digest must be hex encoded")
	}
	return d, nil
}

// DigestFromBytes copies raw into a Digest, rejecting wrong lengths and the zero value.
func DigestFromBytes(raw []byte) (Digest, error) {
	if len(raw) != DigestSize {
		return Digest{}, dErrors.New(dErrors.CodeInvalidDigest, "digest must be 32 bytes")
	}
	var d Digest
	copy(d[:], raw)
	if d.IsZero() {
		return Digest{}, dErrors.New(dErrors.CodeInvalidDigest, "digest must not be zero")
	}
	return d, nil
}

// IsZero reports whether every byte is zero. A zero digest is never a valid credential.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Equal compares two digests in constant time so timing does not leak the
// length of a matching prefix.
func (d Digest) Equal(other Digest) bool {
	return subtle.ConstantTimeCompare(d[:], other[:]) == 1
}

// Bytes returns a copy of the digest bytes.
func (d Digest) Bytes() []byte {
	out := make([]byte, DigestSize)
	copy(out, d[:])
	return out
}

// String renders the 0x-prefixed lower-case hex form.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}
