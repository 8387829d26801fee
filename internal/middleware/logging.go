package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brightly-app/brightly/backend/internal/logger"
)

// RequestLogger writes one entry per request. Server errors log at ERROR,
// client errors at WARN.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			details := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
				"remote":      r.RemoteAddr,
			}
			switch {
			case status >= http.StatusInternalServerError:
				log.Error("http", "request failed", details)
			case status >= http.StatusBadRequest:
				log.Warn("http", "request rejected", details)
			default:
				log.Info("http", "request served", details)
			}
		})
	}
}
