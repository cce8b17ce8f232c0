package httpserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/api"
)

// Generate handles POST /api/generate.
func Generate(gen wallpapergen.ImageGenerator, lg *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, api.MessageMissingFields)
			return
		}
		credential := wallpapergen.Credential(req.APIKey)
		if strings.TrimSpace(req.Prompt) == "" || credential.IsZero() {
			respondError(w, http.StatusBadRequest, api.MessageMissingFields)
			return
		}

		start := time.Now()
		images, err := gen.Generate(r.Context(), req.Prompt, credential)
		if err != nil {
			lg.Error("generate request failed",
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err.Error(),
			)
			switch {
			case wallpapergen.IsCredentialRejected(err):
				respondError(w, http.StatusUnauthorized, api.MessageInvalidKey)
			case wallpapergen.IsInvalidRequest(err):
				respondError(w, http.StatusBadRequest, api.MessageMissingFields)
			default:
				respondError(w, http.StatusInternalServerError, api.MessageGenerateFailed)
			}
			return
		}

		resp := api.GenerateResponse{Images: make([]api.Image, 0, len(images))}
		for _, img := range images {
			resp.Images = append(resp.Images, api.Image{ID: img.ID, URL: img.URL})
		}
		lg.Info("generate request served",
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
			"image_count", len(images),
		)
		respondJSON(w, http.StatusOK, resp)
	}
}

// TestKey handles POST /api/test-key.
func TestKey(validator wallpapergen.CredentialValidator, lg *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.TestKeyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, api.MessageMissingKey)
			return
		}
		credential := wallpapergen.Credential(req.APIKey)
		if credential.IsZero() {
			respondError(w, http.StatusBadRequest, api.MessageMissingKey)
			return
		}

		if !validator.Validate(r.Context(), credential) {
			lg.Warn("API key test failed",
				"request_id", middleware.GetReqID(r.Context()),
				"credential", credential,
			)
			respondJSON(w, http.StatusUnauthorized, api.TestKeyResponse{Success: false, Error: api.MessageTestKeyInvalid})
			return
		}
		respondJSON(w, http.StatusOK, api.TestKeyResponse{Success: true})
	}
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// MethodNotAllowed answers every unsupported method with a JSON body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, api.MessageMethodNotAllowed)
}

// NotFound answers unknown routes with a JSON body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}
