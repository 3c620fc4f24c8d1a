package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already on the wire; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(response)
}

type wireError struct {
	status int
	code   string
}

var wireErrors = map[dErrors.Code]wireError{
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeInvalidDigest:      {http.StatusBadRequest, "invalid_digest"},
	dErrors.CodeNoCredential:       {http.StatusNotFound, "no_credential"},
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeRateLimited:        {http.StatusTooManyRequests, "rate_limited"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "ledger_timeout"},
}

var internalError = wireError{http.StatusInternalServerError, "internal_error"}

func lookup(code dErrors.Code) wireError {
	if we, ok := wireErrors[code]; ok {
		return we
	}
	return internalError
}

// DomainCodeToHTTPStatus maps a domain code to its response status.
func DomainCodeToHTTPStatus(code dErrors.Code) int { return lookup(code).status }

// DomainCodeToHTTPCode maps a domain code to the "error" field of the body.
func DomainCodeToHTTPCode(code dErrors.Code) string { return lookup(code).code }

// WriteError renders err as {"error", "error_description"}. Anything that is
// not a domain error, and every internal error, is reported without detail.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, internalError.status, map[string]string{"error": internalError.code})
		return
	}
	we := lookup(de.Code)
	body := map[string]string{"error": we.code}
	if de.Message != "" && we != internalError {
		body["error_description"] = de.Message
	}
	WriteJSON(w, we.status, body)
}

// RequireCaller reads the authenticated caller. Behind RequireIdentity a
// missing caller is a wiring fault and is reported as internal.
func RequireCaller(ctx context.Context, logger *slog.Logger) (domain.Identity, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsNil() {
		return caller, nil
	}
	if logger != nil {
		logger.ErrorContext(ctx, "no caller in context behind identity middleware",
			"request_id", requestcontext.RequestID(ctx))
	}
	return "", dErrors.New(dErrors.CodeInternal, "authentication context error")
}
