package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/credential/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the credential operations the HTTP surface needs.
type Service interface {
	Issue(ctx context.Context, issuer, holder domain.Identity, digest domain.Digest) (*models.IssueResponse, error)
	Credential(ctx context.Context, caller, holder domain.Identity) (*models.Record, error)
}

// Handler serves credential endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential routes. The router must already enforce
// an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Get("/holders/{holder}/credential", h.HandleGetCredential)
}

// HandleIssue records the request digest for the holder. The caller is the issuer.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	issuer, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	holder, err := domain.ParseIdentity(req.Holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	digest, err := domain.ParseDigest(req.Digest)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected malformed digest",
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Issue(ctx, issuer, holder, digest)
	if err != nil {
		h.logger.WarnContext(ctx, "issue failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleGetCredential returns the caller's own credential.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, err := domain.ParseIdentity(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Credential(ctx, caller, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record.ToResponse())
}
