// Package digest computes document digests off-ledger. The ledger itself only
// ever stores and compares the 32-byte result.
package digest

import (
	"bytes"
	"io"

	"golang.org/x/crypto/sha3"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Keccak256 hashes everything read from r with legacy Keccak-256, the digest
// wallet-based issuers already produce for KYC documents.
func Keccak256(r io.Reader) (domain.Digest, error) {
	h := sha3.NewLegacyKeccak256()
	if _, err := io.Copy(h, r); err != nil {
		return domain.Digest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read document")
	}
	return domain.DigestFromBytes(h.Sum(nil))
}

// Keccak256Bytes is Keccak256 for an in-memory document.
func Keccak256Bytes(doc []byte) (domain.Digest, error) {
	return Keccak256(bytes.NewReader(doc))
}
