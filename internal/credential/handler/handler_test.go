package handler

// Handler tests cover request parsing and domain error to HTTP mapping.
// Issue semantics live in the service tests and e2e/features.

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/credential/handler/mocks"
	"kycgate/internal/credential/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
	"kycgate/pkg/testutil"
)

type CredentialHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestCredentialHandlerSuite(t *testing.T) {
	suite.Run(t, new(CredentialHandlerSuite))
}

func (s *CredentialHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CredentialHandlerSuite) do(method, path string, body any, caller domain.Identity) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *CredentialHandlerSuite) assertStatusAndError(w *httptest.ResponseRecorder, status int, code string) {
	s.Equal(status, w.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(code, resp["error"])
}

func (s *CredentialHandlerSuite) TestIssue() {
	digest := testutil.DigestOf(0xab)

	s.Run("created", func() {
		issuedAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().
			Issue(gomock.Any(), testutil.TestIDs.Issuer, testutil.TestIDs.Holder1, digest).
			Return(&models.IssueResponse{Holder: "holder-1", Issuer: "issuer-1", IssuedAt: issuedAt}, nil)

		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: " holder-1 ", Digest: digest.String()}, testutil.TestIDs.Issuer)

		s.Equal(http.StatusCreated, w.Code)
		var resp models.IssueResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("holder-1", resp.Holder)
		s.False(resp.Superseded)
	})

	s.Run("wallet holder is canonicalised", func() {
		s.service.EXPECT().
			Issue(gomock.Any(), testutil.TestIDs.Issuer, testutil.TestIDs.Wallet, digest).
			Return(&models.IssueResponse{}, nil)

		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: "0x52908400098527886E0F7030069857D2E4169EE7", Digest: digest.String()}, testutil.TestIDs.Issuer)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("malformed digests are invalid_digest", func() {
		for _, bad := range []string{"", "0x1234", "0x" + strings.Repeat("00", domain.DigestSize), "not-hex"} {
			w := s.do(http.MethodPost, "/credentials",
				models.IssueRequest{Holder: "holder-1", Digest: bad}, testutil.TestIDs.Issuer)
			s.assertStatusAndError(w, http.StatusBadRequest, "invalid_digest")
		}
	})

	s.Run("invalid holder is a validation error", func() {
		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: "holder one", Digest: digest.String()}, testutil.TestIDs.Issuer)
		s.assertStatusAndError(w, http.StatusBadRequest, "validation_error")
	})

	s.Run("bad json", func() {
		req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader("{"))
		req = req.WithContext(requestcontext.WithCaller(req.Context(), testutil.TestIDs.Issuer))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.assertStatusAndError(w, http.StatusBadRequest, "bad_request")
	})

	s.Run("unauthorized issuer", func() {
		s.service.EXPECT().
			Issue(gomock.Any(), testutil.TestIDs.Verifier1, testutil.TestIDs.Holder1, digest).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized issuer"))

		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: "holder-1", Digest: digest.String()}, testutil.TestIDs.Verifier1)
		s.assertStatusAndError(w, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("missing caller is a wiring error", func() {
		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: "holder-1", Digest: digest.String()}, "")
		s.assertStatusAndError(w, http.StatusInternalServerError, "internal_error")
	})

	s.Run("ledger timeout", func() {
		s.service.EXPECT().
			Issue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTimeout, "ledger admission timed out"))

		w := s.do(http.MethodPost, "/credentials",
			models.IssueRequest{Holder: "holder-1", Digest: digest.String()}, testutil.TestIDs.Issuer)
		s.assertStatusAndError(w, http.StatusGatewayTimeout, "ledger_timeout")
	})
}

func (s *CredentialHandlerSuite) TestGetCredential() {
	s.Run("own credential", func() {
		s.service.EXPECT().
			Credential(gomock.Any(), testutil.TestIDs.Holder1, testutil.TestIDs.Holder1).
			Return(&models.Record{
				Holder: testutil.TestIDs.Holder1, Digest: testutil.DigestOf(0x01), Issuer: testutil.TestIDs.Issuer,
			}, nil)

		w := s.do(http.MethodGet, "/holders/holder-1/credential", nil, testutil.TestIDs.Holder1)
		s.Equal(http.StatusOK, w.Code)
		var resp models.CredentialResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(testutil.DigestOf(0x01).String(), resp.Digest)
	})

	s.Run("no credential", func() {
		s.service.EXPECT().
			Credential(gomock.Any(), testutil.TestIDs.Holder1, testutil.TestIDs.Holder1).
			Return(nil, dErrors.New(dErrors.CodeNoCredential, "no credential on record"))

		w := s.do(http.MethodGet, "/holders/holder-1/credential", nil, testutil.TestIDs.Holder1)
		s.assertStatusAndError(w, http.StatusNotFound, "no_credential")
	})

	s.Run("someone else's credential", func() {
		s.service.EXPECT().
			Credential(gomock.Any(), testutil.TestIDs.Verifier1, testutil.TestIDs.Holder1).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "only the holder may read their credential"))

		w := s.do(http.MethodGet, "/holders/holder-1/credential", nil, testutil.TestIDs.Verifier1)
		s.assertStatusAndError(w, http.StatusUnauthorized, "unauthorized")
	})
}
