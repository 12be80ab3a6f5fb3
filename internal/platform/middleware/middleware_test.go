package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/logger"
	"iinfinder/internal/platform/metrics"
	"iinfinder/pkg/platform/middleware/metadata"
	"iinfinder/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) TestRequestID() {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	s.Run("keeps the caller's id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		s.Equal("abc-123", seen)
		s.Equal("abc-123", rec.Header().Get(RequestIDHeader))
	})

	s.Run("mints one when absent", func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		s.NotEmpty(seen)
		s.Equal(seen, rec.Header().Get(RequestIDHeader))
	})
}

func (s *MiddlewareSuite) TestRecovery() {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	s.NotPanics(func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"error":"internal_error"}`, rec.Body.String())
}

func (s *MiddlewareSuite) TestLoggerRecordsRoutePattern() {
	m := metrics.New(prometheus.NewRegistry())
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"})

	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(Logger(log, m))
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/items/42", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	s.Equal(1, testutil.CollectAndCount(m.HTTPDuration))
	s.Contains(buf.String(), `"route":"/v1/items/{id}"`)
	s.Contains(buf.String(), `"status":418`)
	s.Contains(buf.String(), `"client_ip":"10.0.0.9"`)
}
