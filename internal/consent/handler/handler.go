package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/consent/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the consent operations exposed over HTTP.
type Service interface {
	SetConsent(ctx context.Context, caller, holder, verifier domain.Identity, granted bool) (*models.Record, error)
	Check(ctx context.Context, caller, holder, verifier domain.Identity) (bool, error)
	List(ctx context.Context, caller, holder domain.Identity) ([]*models.Record, error)
}

// Handler handles consent endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/holders/{holder}/consents", h.HandleList)
	r.Put("/holders/{holder}/consents/{verifier}", h.HandleSetConsent)
	r.Get("/holders/{holder}/consents/{verifier}", h.HandleCheck)
}

func (h *Handler) HandleSetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, verifier, err := pairFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SetConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.SetConsent(ctx, caller, holder, verifier, *req.Granted)
	if err != nil {
		h.logger.WarnContext(ctx, "set consent failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record.ToResponse())
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, verifier, err := pairFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	granted, err := h.service.Check(ctx, caller, holder, verifier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.CheckResponse{
		Holder:   holder.String(),
		Verifier: verifier.String(),
		Granted:  granted,
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.service.List(ctx, caller, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := &models.ListResponse{Consents: make([]*models.ConsentResponse, 0, len(records))}
	for _, record := range records {
		resp.Consents = append(resp.Consents, record.ToResponse())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func pairFromPath(r *http.Request) (holder, verifier domain.Identity, err error) {
	holder, err = domain.ParseIdentity(chi.URLParam(r, "holder"))
	if err != nil {
		return "", "", err
	}
	verifier, err = domain.ParseIdentity(chi.URLParam(r, "verifier"))
	if err != nil {
		return "", "", err
	}
	return holder, verifier, nil
}
