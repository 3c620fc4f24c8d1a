// Package auth authenticates callers from bearer tokens.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// IdentityResolver verifies a bearer token and returns its claims.
type IdentityResolver interface {
	Resolve(token string) (*Claims, error)
}

type Claims struct {
	Subject string
	JTI     string
}

// RequireIdentity admits only requests with a valid bearer token and puts the
// token's subject in the context as the caller. Handlers never take the
// caller from the request body.
func RequireIdentity(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason, description string, err error) {
				logger.WarnContext(ctx, "request rejected", "reason", reason, "error", err,
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, description))
			}

			token, ok := bearerToken(r)
			if !ok {
				reject("missing_token", "Missing or invalid Authorization header", nil)
				return
			}
			claims, err := resolver.Resolve(token)
			if err != nil {
				reject("invalid_token", "Invalid or expired token", err)
				return
			}
			caller, err := domain.ParseIdentity(claims.Subject)
			if err != nil {
				reject("malformed_subject", "Invalid or expired token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
