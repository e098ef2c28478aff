package middleware

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.5:51234", "10.0.0.5"},
		{"remote without port", nil, "10.0.0.5", "10.0.0.5"},
		{"x-real-ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "10.0.0.1:1", "203.0.113.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "10.0.0.1:1", "198.51.100.2"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 198.51.100.3 "}, "10.0.0.1:1", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, RealIP(r))
		})
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/notice?date=2024-06-10", nil))

		out := buf.String()
		assert.Contains(t, out, tt.level)
		assert.Contains(t, out, fmt.Sprintf("status=%d", tt.status))
		assert.Contains(t, out, "path=/api/notice")
		assert.Contains(t, out, "query=")
	}
}

type fakeRecorder struct {
	method string
	status int
	calls  int
}

func (f *fakeRecorder) ObserveHTTP(method string, status int, _ time.Duration) {
	f.method = method
	f.status = status
	f.calls++
}

func TestMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	h := Metrics(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/day-offs/x", nil))

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, http.StatusNoContent, rec.status)
}

func TestMetricsDefaultStatus(t *testing.T) {
	rec := &fakeRecorder{}
	h := Metrics(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.status)
}
