package request

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	echo := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	}))

	cases := []struct {
		name   string
		header string
		kept   bool
	}{
		{name: "absent header is generated", header: "", kept: false},
		{name: "client id is propagated", header: "closure-42.retry_1", kept: true},
		{name: "id at max length is kept", header: strings.Repeat("a", MaxRequestIDLength), kept: true},
		{name: "oversized id is replaced", header: strings.Repeat("a", MaxRequestIDLength+1), kept: false},
		{name: "log injection is replaced", header: "abc\ninjected", kept: false},
		{name: "special characters are replaced", header: "id;drop", kept: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/counsellors/c-1/sessions", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}
			w := httptest.NewRecorder()
			echo.ServeHTTP(w, req)

			got := w.Body.String()
			assert.Equal(t, got, w.Header().Get("X-Request-ID"))
			if tc.kept {
				assert.Equal(t, tc.header, got)
				return
			}
			assert.NotEqual(t, tc.header, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	handler := BodyLimit(64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	require.NoError(t, readErr)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 65))))
	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)
}

func TestContentTypeJSON(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIDFromContext(t *testing.T) {
	t.Run("returns empty string when not set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		assert.Equal(t, "", GetRequestID(req.Context()))
	})
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	t.Run("logs status and anonymized address", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/counsellors/c-1/sessions", nil)
		req.RemoteAddr = "192.168.1.47:5555"
		req.Header.Set("X-Request-ID", "req-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, `"status":418`)
		assert.Contains(t, out, `"request_id":"req-1"`)
		assert.Contains(t, out, `"remote_addr_prefix":"192.168.1.0"`)
		assert.NotContains(t, out, "192.168.1.47")
	})

	t.Run("skips healthy probes", func(t *testing.T) {
		buf.Reset()
		quiet := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		quiet.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, buf.String())
	})
}
