package models

import (
	"strings"

	"kycgate/pkg/validation"
)

// VerifyRequest is the body of POST /verifications. The verifier is the caller.
type VerifyRequest struct {
	Holder string `json:"holder" validate:"required,identity"`
	Digest string `json:"digest"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Holder = strings.TrimSpace(r.Holder)
	r.Digest = strings.TrimSpace(r.Digest)
}

func (r *VerifyRequest) Validate() error {
	return validation.Validate(r)
}

// VerifyResponse carries only the decision. A false result does not say
// whether consent was missing or the digest differed.
type VerifyResponse struct {
	Verified bool `json:"verified"`
}
