package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder receives one observation per request.
type HTTPRecorder interface {
	ObserveHTTP(method string, status int, elapsed time.Duration)
}

// Metrics returns middleware that reports every request to rec.
func Metrics(rec HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := record(w)
			next.ServeHTTP(sr, r)
			rec.ObserveHTTP(r.Method, sr.status, time.Since(start))
		})
	}
}
