// Package shield provides the HTTP middleware of the collector: security
// headers, body limits and request tracing, on top of chi's panic recovery
// and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(logger, 10<<20) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the middleware stack of the collector, outermost
// first: Recoverer → GetHead → SecurityHeaders → MaxBody → RequestLogger.
// GetHead answers HEAD on report routes with their GET handler, so it only
// works inside a chi router.
func DefaultStack(logger *slog.Logger, maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.Recoverer,
		middleware.GetHead,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(maxBody),
		RequestLogger(logger),
	}
}
