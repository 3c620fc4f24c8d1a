// Package domain provides the identity and digest value types shared by the
// credential, consent and verification modules.
package domain

import (
	"regexp"
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

// MaxIdentityLength bounds identity tokens accepted at trust boundaries.
const MaxIdentityLength = 128

var (
	validIdentity = regexp.MustCompile(`^[A-Za-z0-9._:@-]+$`)
	walletAddress = regexp.MustCompile(`^0[xX][0-9a-fA-F]{40}$`)
)

// Identity is an opaque participant token. The same value may act as issuer,
// holder or verifier depending on the call; identities are only ever compared
// for equality.
type Identity string

// ParseIdentity validates an identity at a trust boundary (handlers, token claims).
// Wallet addresses are canonicalised to lower case so checksummed and plain
// spellings of the same address compare equal.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	if len(s) > MaxIdentityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity is too long")
	}
	if !validIdentity.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid identity format")
	}
	if walletAddress.MatchString(s) {
		s = "0x" + strings.ToLower(s[2:])
	}
	return Identity(s), nil
}

func (id Identity) String() string { return string(id) }

// IsNil reports whether the identity is unset. Used for service-layer validation.
func (id Identity) IsNil() bool { return id == "" }
