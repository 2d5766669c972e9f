package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"otpgate/internal/abuse/models"
	dErrors "otpgate/pkg/domain-errors"
)

type stubService struct {
	windows  []models.WindowStatus
	listErr  error
	clearErr error

	listedIdentity  string
	clearedIdentity string
}

func (s *stubService) ListForIdentity(_ context.Context, identity string) ([]models.WindowStatus, error) {
	s.listedIdentity = identity
	return s.windows, s.listErr
}

func (s *stubService) ClearForIdentity(_ context.Context, identity string) error {
	s.clearedIdentity = identity
	return s.clearErr
}

type AdminHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *stubService
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	s.service = &stubService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).RegisterAdmin(s.router)
}

func (s *AdminHandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AdminHandlerSuite) TestListWindows() {
	s.service.windows = []models.WindowStatus{
		{Route: "sign-in-send-otp", Identity: "user@inpe.br", ClientIP: "203.0.113.9", Count: 2, RetryAfterSeconds: 40},
	}

	rec := s.do(http.MethodGet, "/admin/rate-limits/user@inpe.br")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("user@inpe.br", s.service.listedIdentity)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	windows := body["data"].(map[string]any)["windows"].([]any)
	s.Len(windows, 1)
}

func (s *AdminHandlerSuite) TestListWindowsNormalizesIdentity() {
	rec := s.do(http.MethodGet, "/admin/rate-limits/User%40INPE.br")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("user@inpe.br", s.service.listedIdentity)
}

func (s *AdminHandlerSuite) TestListWindowsStoreError() {
	s.service.listErr = dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed to list rate limits")

	rec := s.do(http.MethodGet, "/admin/rate-limits/user@inpe.br")
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *AdminHandlerSuite) TestClearIdentity() {
	rec := s.do(http.MethodDelete, "/admin/rate-limits/user@inpe.br")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("user@inpe.br", s.service.clearedIdentity)
}

func (s *AdminHandlerSuite) TestClearIdentityStoreError() {
	s.service.clearErr = dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed to clear rate limits")

	rec := s.do(http.MethodDelete, "/admin/rate-limits/user@inpe.br")
	s.Equal(http.StatusInternalServerError, rec.Code)
}
