package testutil

import (
	"bytes"

	"kycgate/pkg/domain"
)

// TestIDs are fixed identities for deterministic test data. Wallet is in
// canonical lower-case form.
var TestIDs = struct {
	Issuer    domain.Identity
	Holder1   domain.Identity
	Holder2   domain.Identity
	Verifier1 domain.Identity
	Verifier2 domain.Identity
	Wallet    domain.Identity
}{
	Issuer:    "issuer-1",
	Holder1:   "holder-1",
	Holder2:   "holder-2",
	Verifier1: "verifier-1",
	Verifier2: "verifier-2",
	Wallet:    "0x52908400098527886e0f7030069857d2e4169ee7",
}

// DigestOf returns a digest whose every byte is b. b must be non-zero.
func DigestOf(b byte) domain.Digest {
	d, err := domain.DigestFromBytes(bytes.Repeat([]byte{b}, domain.DigestSize))
	if err != nil {
		panic(err)
	}
	return d
}

// FlipBit returns a copy of d with one bit inverted.
func FlipBit(d domain.Digest, byteIdx, bit int) domain.Digest {
	out := d
	out[byteIdx] ^= 1 << bit
	return out
}
