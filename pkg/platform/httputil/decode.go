package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "kycgate/pkg/domain-errors"
)

// Normalizable request bodies trim or canonicalise fields before validation.
type Normalizable interface {
	Normalize()
}

// Validatable request bodies check their own shape.
type Validatable interface {
	Validate() error
}

// decodeBody maps JSON failures to bad_request. Oversized and empty bodies
// get their own messages so clients can tell them apart.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "request body too large")
	case errors.Is(err, io.EOF):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "request body is empty")
	default:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
}

// prepare normalizes then validates. Plain errors become validation errors;
// domain errors keep their code.
func prepare(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
}

// DecodeAndPrepare decodes the JSON body into T, normalizes and validates it.
// On failure it writes the error response and returns false.
//
//	req, ok := httputil.DecodeAndPrepare[models.IssueRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := decodeBody(r, req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	if err := prepare(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
