package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/verification/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier

// Verifier makes verification decisions.
type Verifier interface {
	Verify(ctx context.Context, caller, holder domain.Identity, candidate domain.Digest) (bool, error)
}

type Handler struct {
	verifier Verifier
	logger   *slog.Logger
}

func New(verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, logger: logger}
}

// Register mounts POST /verifications. Extra middleware, such as the
// attempt limiter, wraps only this route.
func (h *Handler) Register(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Post("/verifications", h.HandleVerify)
}

// HandleVerify answers whether the caller may confirm the submitted digest.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	holder, err := domain.ParseIdentity(req.Holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidate, err := domain.ParseCandidateDigest(req.Digest)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.verifier.Verify(ctx, caller, holder, candidate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.VerifyResponse{Verified: verified})
}
