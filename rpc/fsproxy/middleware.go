package fsproxy

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
)

// --------------------------------------------------------------------------
// Middleware (logging, metrics)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// loggerMiddleware logs every request at debug level
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)
		Logger.Debugf("%s %s?%s => %d took %s", r.Method, r.URL.Path, r.URL.RawQuery, rw.statusCode, time.Since(start))
	})
}

// metricsMiddleware counts requests per route and status and records their duration
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(`fsproxy_requests_total{route=%q,code="%d"}`, route, rw.statusCode)).Inc()
		metrics.GetOrCreateHistogram(fmt.Sprintf(`fsproxy_request_duration_seconds{route=%q}`, route)).Update(time.Since(start).Seconds())
	})
}
