package models

import (
	"time"

	"kycgate/pkg/domain"
	"kycgate/pkg/validation"
)

// Record is the consent flag for one (holder, verifier) pair. A missing
// record means consent was never granted.
type Record struct {
	Holder    domain.Identity
	Verifier  domain.Identity
	Granted   bool
	UpdatedAt time.Time
}

// Scope identifies the pair a consent applies to. There is no wildcard verifier.
type Scope struct {
	Holder   domain.Identity
	Verifier domain.Identity
}

// SetConsentRequest is the body of PUT /holders/{holder}/consents/{verifier}.
// A pointer distinguishes a missing flag from false.
type SetConsentRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

func (r *SetConsentRequest) Validate() error {
	return validation.Validate(r)
}

// CheckResponse answers whether a verifier currently holds consent.
type CheckResponse struct {
	Holder   string `json:"holder"`
	Verifier string `json:"verifier"`
	Granted  bool   `json:"granted"`
}

// ConsentResponse reports one consent flag.
type ConsentResponse struct {
	Holder    string     `json:"holder"`
	Verifier  string     `json:"verifier"`
	Granted   bool       `json:"granted"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ListResponse is the holder's own consent list.
type ListResponse struct {
	Consents []*ConsentResponse `json:"consents"`
}

func (r *Record) ToResponse() *ConsentResponse {
	resp := &ConsentResponse{
		Holder:   r.Holder.String(),
		Verifier: r.Verifier.String(),
		Granted:  r.Granted,
	}
	if !r.UpdatedAt.IsZero() {
		updated := r.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// Transition is the journal payload for consent_granted and consent_revoked.
type Transition struct {
	Holder    string    `json:"holder"`
	Verifier  string    `json:"verifier"`
	Granted   bool      `json:"granted"`
	UpdatedAt time.Time `json:"updated_at"`
}
