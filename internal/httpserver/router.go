// Package httpserver is the proxy server: it accepts a prompt and an API key
// over HTTP and performs the Gemini calls on the caller's behalf.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/api"
)

// NewRouter wires the proxy routes.
func NewRouter(gen wallpapergen.ImageGenerator, validator wallpapergen.CredentialValidator, lg *slog.Logger) http.Handler {
	if lg == nil {
		lg = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requestLogger(lg))
	r.MethodNotAllowed(MethodNotAllowed)
	r.NotFound(NotFound)

	r.Post(api.PathGenerate, Generate(gen, lg))
	r.Post(api.PathTestKey, TestKey(validator, lg))
	r.Get(api.PathHealth, Health)
	return r
}

// requestLogger logs one line per request. Bodies are never logged; they carry API keys.
func requestLogger(lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			lg.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
