package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kycgate/internal/verification/handler/mocks"
	"kycgate/internal/verification/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
	"kycgate/pkg/testutil"
)

func newTestRouter(t *testing.T, middlewares ...func(http.Handler) http.Handler) (chi.Router, *mocks.MockVerifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	r := chi.NewRouter()
	New(verifier, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r, middlewares...)
	return r, verifier
}

func post(t *testing.T, r http.Handler, body models.VerifyRequest, caller domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/verifications", bytes.NewReader(raw))
	req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleVerify(t *testing.T) {
	digest := testutil.DigestOf(0x7f)
	body := models.VerifyRequest{Holder: "holder-1", Digest: digest.String()}

	t.Run("decision is returned as verified flag", func(t *testing.T) {
		for _, want := range []bool{true, false} {
			r, verifier := newTestRouter(t)
			verifier.EXPECT().
				Verify(gomock.Any(), testutil.TestIDs.Verifier1, testutil.TestIDs.Holder1, digest).
				Return(want, nil)

			w := post(t, r, body, testutil.TestIDs.Verifier1)
			require.Equal(t, http.StatusOK, w.Code)
			var resp models.VerifyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, want, resp.Verified)
		}
	})

	t.Run("no credential is 404", func(t *testing.T) {
		r, verifier := newTestRouter(t)
		verifier.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(false, dErrors.New(dErrors.CodeNoCredential, "no credential on record for holder"))

		w := post(t, r, body, testutil.TestIDs.Verifier1)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"no_credential"`)
	})

	t.Run("malformed candidate is invalid_digest", func(t *testing.T) {
		r, _ := newTestRouter(t)
		w := post(t, r, models.VerifyRequest{Holder: "holder-1", Digest: "0xdead"}, testutil.TestIDs.Verifier1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"invalid_digest"`)
	})

	t.Run("zero candidate reaches the engine", func(t *testing.T) {
		r, verifier := newTestRouter(t)
		verifier.EXPECT().
			Verify(gomock.Any(), testutil.TestIDs.Verifier1, testutil.TestIDs.Holder1, domain.Digest{}).
			Return(false, dErrors.New(dErrors.CodeNoCredential, "no credential on record for holder"))

		zero := domain.Digest{}
		w := post(t, r, models.VerifyRequest{Holder: "holder-1", Digest: zero.String()}, testutil.TestIDs.Verifier1)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"no_credential"`)
	})

	t.Run("missing holder", func(t *testing.T) {
		r, _ := newTestRouter(t)
		w := post(t, r, models.VerifyRequest{Digest: digest.String()}, testutil.TestIDs.Verifier1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "holder is required")
	})

	t.Run("route middleware runs first", func(t *testing.T) {
		block := func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})
		}
		r, _ := newTestRouter(t, block)
		w := post(t, r, body, testutil.TestIDs.Verifier1)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
