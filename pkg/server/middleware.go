package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jupierce/coverage-viewer/pkg/log"
)

// RequestLogger logs incoming requests and records their metrics.
func RequestLogger(logger *log.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			m.Requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			logger.Debug("request id=%s method=%s path=%s status=%d duration_ms=%d",
				middleware.GetReqID(r.Context()), r.Method, r.URL.Path, sw.status, elapsed.Milliseconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
