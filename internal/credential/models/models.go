package models

import (
	"strings"
	"time"

	"kycgate/pkg/domain"
	"kycgate/pkg/validation"
)

// Record is the current credential for a holder. At most one exists per
// holder; a new issue replaces it in place and no history is kept here.
type Record struct {
	Holder   domain.Identity
	Digest   domain.Digest
	Issuer   domain.Identity
	IssuedAt time.Time
}

func (r *Record) ToResponse() *CredentialResponse {
	return &CredentialResponse{
		Holder:   r.Holder.String(),
		Digest:   r.Digest.String(),
		Issuer:   r.Issuer.String(),
		IssuedAt: r.IssuedAt,
	}
}

// IssueRequest is the body of POST /credentials. The issuer is the caller.
type IssueRequest struct {
	Holder string `json:"holder" validate:"required,identity"`
	// Digest is parsed by domain.ParseDigest so every malformed value,
	// including an empty one, is reported as invalid_digest.
	Digest string `json:"digest"`
}

// Normalize trims surrounding whitespace.
func (r *IssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.Holder = strings.TrimSpace(r.Holder)
	r.Digest = strings.TrimSpace(r.Digest)
}

func (r *IssueRequest) Validate() error {
	return validation.Validate(r)
}

// IssueResponse acknowledges an issue.
type IssueResponse struct {
	Holder     string    `json:"holder"`
	Issuer     string    `json:"issuer"`
	IssuedAt   time.Time `json:"issued_at"`
	Superseded bool      `json:"superseded"`
}

// CredentialResponse is what a holder sees of their own credential.
type CredentialResponse struct {
	Holder   string    `json:"holder"`
	Digest   string    `json:"digest"`
	Issuer   string    `json:"issuer"`
	IssuedAt time.Time `json:"issued_at"`
}

// Transition is the journal payload for credential_issued and credential_superseded.
type Transition struct {
	Holder   string    `json:"holder"`
	Issuer   string    `json:"issuer"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
	// PreviousIssuer is set when an existing record was replaced.
	PreviousIssuer string `json:"previous_issuer,omitempty"`
}
