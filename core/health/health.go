package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/autocert/pkg/logger"
)

// Liveness reports that the process is running. Mount it on a path probes can
// reach over plain HTTP.
func Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
}

// Readiness verifies every dependency probe succeeds. It returns "READY" when
// all pass and 503 Service Unavailable when any fails.
//
//	mux.Handle("/health/ready", health.Readiness(log,
//		redis.Healthcheck(client),
//	))
func Readiness(log *slog.Logger, probes ...func(context.Context) error) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, probe := range probes {
			if err := probe(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
}
