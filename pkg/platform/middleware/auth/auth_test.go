package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type capturingHandler struct {
	called bool
	ctx    context.Context
}

func (h *capturingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type RequireBearerSuite struct {
	suite.Suite
	next       *capturingHandler
	middleware http.Handler
}

func TestRequireBearerSuite(t *testing.T) {
	suite.Run(t, new(RequireBearerSuite))
}

func (s *RequireBearerSuite) SetupTest() {
	s.next = &capturingHandler{}
	s.middleware = RequireBearer(slog.Default())(s.next)
}

func (s *RequireBearerSuite) serve(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/counsellors/c-1/sessions", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	s.middleware.ServeHTTP(w, req)
	return w
}

func (s *RequireBearerSuite) TestStoresToken() {
	w := s.serve("Bearer abc.def.ghi")
	s.Equal(http.StatusOK, w.Code)
	s.Require().True(s.next.called)
	s.Equal("abc.def.ghi", GetAccessToken(s.next.ctx))
}

func (s *RequireBearerSuite) TestRejectsMissingOrMalformedHeader() {
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer ", "bearer abc"} {
		s.next.called = false
		w := s.serve(header)
		s.Equal(http.StatusUnauthorized, w.Code, header)
		s.False(s.next.called, header)
		s.Contains(w.Body.String(), `"error":"unauthorized"`)
	}
}

func (s *RequireBearerSuite) TestEmptyContext() {
	s.Equal("", GetAccessToken(context.Background()))
}
