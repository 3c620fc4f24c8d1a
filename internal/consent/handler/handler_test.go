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
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/consent/handler/mocks"
	"kycgate/internal/consent/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
	"kycgate/pkg/testutil"
)

type ConsentHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *ConsentHandlerSuite) do(method, path, body string, caller domain.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if caller != "" {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ConsentHandlerSuite) assertStatusAndError(w *httptest.ResponseRecorder, status int, code string) {
	s.Equal(status, w.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(code, resp["error"])
}

func (s *ConsentHandlerSuite) TestSetConsent() {
	h := testutil.TestIDs.Holder1
	v := testutil.TestIDs.Verifier1

	s.Run("grant", func() {
		s.service.EXPECT().SetConsent(gomock.Any(), h, h, v, true).
			Return(&models.Record{Holder: h, Verifier: v, Granted: true}, nil)

		w := s.do(http.MethodPut, "/holders/holder-1/consents/verifier-1", `{"granted":true}`, h)
		s.Equal(http.StatusOK, w.Code)
		var resp models.ConsentResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.True(resp.Granted)
		s.Equal("verifier-1", resp.Verifier)
	})

	s.Run("revoke", func() {
		s.service.EXPECT().SetConsent(gomock.Any(), h, h, v, false).
			Return(&models.Record{Holder: h, Verifier: v}, nil)

		w := s.do(http.MethodPut, "/holders/holder-1/consents/verifier-1", `{"granted":false}`, h)
		s.Equal(http.StatusOK, w.Code)
		s.NotContains(w.Body.String(), "updated_at")
	})

	s.Run("missing flag is a validation error", func() {
		w := s.do(http.MethodPut, "/holders/holder-1/consents/verifier-1", `{}`, h)
		s.assertStatusAndError(w, http.StatusBadRequest, "validation_error")
	})

	s.Run("non-holder caller", func() {
		s.service.EXPECT().SetConsent(gomock.Any(), v, h, v, true).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "only the holder may change consent"))

		w := s.do(http.MethodPut, "/holders/holder-1/consents/verifier-1", `{"granted":true}`, v)
		s.assertStatusAndError(w, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("malformed verifier", func() {
		w := s.do(http.MethodPut, "/holders/holder-1/consents/bad%20id", `{"granted":true}`, h)
		s.assertStatusAndError(w, http.StatusBadRequest, "bad_request")
	})

	s.Run("internal errors hide their message", func() {
		s.service.EXPECT().SetConsent(gomock.Any(), h, h, v, true).
			Return(nil, dErrors.New(dErrors.CodeInternal, "db exploded"))

		w := s.do(http.MethodPut, "/holders/holder-1/consents/verifier-1", `{"granted":true}`, h)
		s.assertStatusAndError(w, http.StatusInternalServerError, "internal_error")
		s.NotContains(w.Body.String(), "db exploded")
	})
}

func (s *ConsentHandlerSuite) TestCheck() {
	h := testutil.TestIDs.Holder1
	v := testutil.TestIDs.Verifier1

	s.service.EXPECT().Check(gomock.Any(), v, h, v).Return(true, nil)
	w := s.do(http.MethodGet, "/holders/holder-1/consents/verifier-1", "", v)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"holder":"holder-1","verifier":"verifier-1","granted":true}`, w.Body.String())

	s.service.EXPECT().Check(gomock.Any(), testutil.TestIDs.Verifier2, h, v).
		Return(false, dErrors.New(dErrors.CodeUnauthorized, "only the holder or the verifier may read this consent"))
	w = s.do(http.MethodGet, "/holders/holder-1/consents/verifier-1", "", testutil.TestIDs.Verifier2)
	s.assertStatusAndError(w, http.StatusUnauthorized, "unauthorized")
}

func (s *ConsentHandlerSuite) TestList() {
	h := testutil.TestIDs.Holder1

	s.service.EXPECT().List(gomock.Any(), h, h).Return(nil, nil)
	w := s.do(http.MethodGet, "/holders/holder-1/consents", "", h)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"consents":[]}`, w.Body.String())

	s.service.EXPECT().List(gomock.Any(), h, h).Return([]*models.Record{
		{Holder: h, Verifier: testutil.TestIDs.Verifier1, Granted: true},
	}, nil)
	w = s.do(http.MethodGet, "/holders/holder-1/consents", "", h)
	var resp models.ListResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Consents, 1)
	s.True(resp.Consents[0].Granted)
}
