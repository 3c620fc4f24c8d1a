// Package tracer is the span API the services code against. OTelTracer
// backs it with OpenTelemetry; NewNoop drops everything.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Span must be ended exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute values are string, bool, int or int64; anything else is dropped.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute    { return Attribute{key, value} }
func Bool(key string, value bool) Attribute { return Attribute{key, value} }
func Int(key string, value int) Attribute   { return Attribute{key, value} }

// HashIdentity shortens an identity to 16 hex characters of its SHA-256 so
// spans correlate per participant without carrying wallet addresses.
func HashIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:8])
}

const (
	SpanIssue      = "credential.issue"
	SpanSetConsent = "consent.set"
	SpanVerify     = "verification.verify"

	AttrHolder    = "holder"
	AttrVerifier  = "verifier"
	AttrConsented = "consented"
	AttrHasRecord = "credential.present"
	AttrVerified  = "verified"

	EventAuditEmitted = "audit.emitted"
)
