package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AccessLog logs the start and end of every request with its request id.
// The request logger is stored in the context for handlers.
func AccessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := GetRequestID(r.Context())

			reqLog := log.With().
				Str("rid", rid).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			reqLog.Debug().Msg("request started")

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

			ev := reqLog.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = reqLog.Warn()
			}
			ev.Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("dur", time.Since(start)).
				Msg("request completed")
		})
	}
}
