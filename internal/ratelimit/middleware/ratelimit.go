package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks Limiter

// Limiter decides whether a caller may proceed within a scope.
type Limiter interface {
	Check(ctx context.Context, scope string, caller domain.Identity) (*models.Result, error)
}

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
}

func New(limiter Limiter, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, logger: logger}
}

// PerCaller limits requests by the authenticated caller. It must run after
// RequireIdentity. Limiter failures fail open.
func (m *Middleware) PerCaller(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.Caller(ctx)
			if caller.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.limiter.Check(ctx, scope, caller)
			if err != nil {
				if m.logger != nil {
					m.logger.ErrorContext(ctx, "rate limit check failed",
						"error", err,
						"scope", scope,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many verification attempts, retry later"))
}
