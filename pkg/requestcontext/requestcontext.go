// Package requestcontext carries request-scoped values (request ID, caller
// identity, client metadata, request time) through context.Context.
package requestcontext

import (
	"context"
	"time"

	"kycgate/pkg/domain"
)

type (
	requestIDKey struct{}
	callerKey    struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	deviceKey    struct{}
	timeKey      struct{}
)

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID or "" when absent.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithCaller stores the authenticated caller identity.
func WithCaller(ctx context.Context, caller domain.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated caller identity, or the zero Identity.
func Caller(ctx context.Context) domain.Identity {
	if v, ok := ctx.Value(callerKey{}).(domain.Identity); ok {
		return v
	}
	return ""
}

// WithClientMetadata stores the client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceName stores a human readable "browser on os" label parsed from the User-Agent.
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, deviceKey{}, name)
}

func DeviceName(ctx context.Context) string {
	if v, ok := ctx.Value(deviceKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime injects a specific request time. Used by the RequestTime middleware,
// workers and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now() outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
