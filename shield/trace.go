package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/skilllog/kit"
)

// RequestLogger returns middleware that gives each request a random trace
// ID (context, X-Trace-ID header) and a logger derived from base carrying
// it. A nil base means slog.Default().
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := make([]byte, 4)
			rand.Read(id)
			traceID := hex.EncodeToString(id)

			ctx := kit.WithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-ID", traceID)

			l := base
			if l == nil {
				l = slog.Default()
			}
			logger := l.With(
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, logger)
			logger.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
