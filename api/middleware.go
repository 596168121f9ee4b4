// middleware.go - zap request logging and panic recovery.
//
// The recoverer answers any panic with the same generic body the
// handlers use for storage failures, so an unhandled internal failure
// always surfaces as 500 {"msg":"Something went wrong!"}.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request: method, path, status, bytes
// and duration, tagged with the chi request id.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			next.ServeHTTP(ww, r)

			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recoverer converts a handler panic into the generic 500 response.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic",
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.Any("panic", rec),
					)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{Msg: internalErrorMsg})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
