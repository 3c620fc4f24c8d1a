package service

import (
	"fmt"

	"kycgate/pkg/domain"
	strutil "kycgate/pkg/platform/strings"
)

// IssuerPolicy decides whether an identity may write credentials.
type IssuerPolicy interface {
	CanIssue(issuer domain.Identity) bool
}

// AllowList admits only the configured issuers.
type AllowList struct {
	issuers map[domain.Identity]struct{}
}

// NewAllowList parses each configured issuer the same way caller identities
// are parsed, so wallet addresses match regardless of checksum casing.
func NewAllowList(issuers []string) (*AllowList, error) {
	set := make(map[domain.Identity]struct{}, len(issuers))
	for _, raw := range issuers {
		id, err := domain.ParseIdentity(raw)
		if err != nil {
			return nil, fmt.Errorf("issuer %q: %w", raw, err)
		}
		set[id] = struct{}{}
	}
	return &AllowList{issuers: set}, nil
}

func (a *AllowList) CanIssue(issuer domain.Identity) bool {
	_, ok := a.issuers[issuer]
	return ok
}

// OpenIssuance admits any authenticated identity. Issuer authority is then
// enforced upstream by whoever mints identity tokens.
type OpenIssuance struct{}

func (OpenIssuance) CanIssue(issuer domain.Identity) bool {
	return !issuer.IsNil()
}

// PolicyFromConfig returns an AllowList when issuers are configured and
// OpenIssuance otherwise. Blank and repeated entries are ignored.
func PolicyFromConfig(issuers []string) (IssuerPolicy, error) {
	issuers = strutil.DedupeAndTrim(issuers)
	if len(issuers) == 0 {
		return OpenIssuance{}, nil
	}
	return NewAllowList(issuers)
}
