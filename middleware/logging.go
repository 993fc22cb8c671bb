package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ResponseCapture records the status code written by the wrapped handler
type ResponseCapture struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rc *ResponseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

// LoggingMiddleware emits one structured log line per request. Probe and
// scrape endpoints are not logged.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		capture := &ResponseCapture{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(capture, r)
		duration := time.Since(start)

		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", capture.statusCode,
			"duration_ms", duration.Milliseconds(),
			"ip", extractIPAddress(r),
		)
	})
}
