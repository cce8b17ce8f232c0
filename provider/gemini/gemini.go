// Package gemini provides an ImageGenerator and CredentialValidator that call
// Google's Gemini API directly.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// The credential is supplied per call, so a client is built for the key in
// use and reused until a different key arrives.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/wallpapergen"
	"google.golang.org/genai"
)

// Config configures the Gemini provider.
type Config struct {
	// ImageModel defaults to wallpapergen.DefaultImageModel
	ImageModel wallpapergen.Model

	// ValidationModel defaults to wallpapergen.DefaultValidationModel
	ValidationModel wallpapergen.Model

	// BaseURL overrides the API endpoint (gateways, tests)
	BaseURL string

	// HTTPClient is passed to the SDK; nil uses its default client
	HTTPClient *http.Client

	Logger *slog.Logger

	// Now stamps batch ids; defaults to time.Now
	Now func() time.Time
}

// Generator implements wallpapergen.ImageGenerator and
// wallpapergen.CredentialValidator using the Gemini API.
type Generator struct {
	imageModel      wallpapergen.Model
	validationModel wallpapergen.Model
	baseURL         string
	httpClient      *http.Client
	logger          *slog.Logger
	now             func() time.Time

	mu        sync.Mutex
	client    *genai.Client
	clientKey wallpapergen.Credential
}

// Ensure Generator implements the interfaces.
var (
	_ wallpapergen.ImageGenerator      = (*Generator)(nil)
	_ wallpapergen.CredentialValidator = (*Generator)(nil)
)

// New creates a Generator. A nil config uses the default models and endpoint.
func New(config *Config) *Generator {
	if config == nil {
		config = &Config{}
	}

	g := &Generator{
		imageModel:      config.ImageModel,
		validationModel: config.ValidationModel,
		baseURL:         config.BaseURL,
		httpClient:      config.HTTPClient,
		logger:          config.Logger,
		now:             config.Now,
	}
	if g.imageModel == "" {
		g.imageModel = wallpapergen.DefaultImageModel
	}
	if g.validationModel == "" {
		g.validationModel = wallpapergen.DefaultValidationModel
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Generate requests one batch of wallpapers for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error) {
	req, err := wallpapergen.NewGenerateRequest(g.imageModel, prompt, credential)
	if err != nil {
		return nil, err
	}
	model := req.Model.String()

	client, err := g.clientFor(ctx, credential)
	if err != nil {
		return nil, wallpapergen.NewGenerationFailed(model, 0, err)
	}

	start := time.Now()
	resp, err := client.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(req.NumberOfImages),
		OutputMIMEType: req.OutputMIMEType,
		AspectRatio:    req.AspectRatio.String(),
	})
	if err != nil {
		return nil, classifyError(err, model)
	}
	if resp == nil {
		return nil, wallpapergen.NewGenerationFailed(model, 0, errors.New("empty response from model"))
	}

	payloads := make([]wallpapergen.ImagePayload, 0, len(resp.GeneratedImages))
	for _, generated := range resp.GeneratedImages {
		var payload wallpapergen.ImagePayload
		if generated != nil && generated.Image != nil {
			payload.Data = generated.Image.ImageBytes
			payload.MIMEType = generated.Image.MIMEType
		}
		payloads = append(payloads, payload)
	}

	images, err := wallpapergen.NewBatch(g.now(), payloads)
	if err != nil {
		return nil, wallpapergen.NewGenerationFailed(model, 0, err)
	}

	g.logger.Debug("imagen batch received",
		"model", model,
		"image_count", len(images),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

// Validate sends a minimal text request and reports whether it succeeded.
func (g *Generator) Validate(ctx context.Context, credential wallpapergen.Credential) bool {
	if credential.IsZero() {
		return false
	}

	client, err := g.clientFor(ctx, credential)
	if err != nil {
		g.logger.Debug("credential check could not start", "error", err.Error())
		return false
	}

	model := g.validationModel.String()
	if _, err := client.Models.GenerateContent(ctx, model, genai.Text(wallpapergen.ValidationPrompt), nil); err != nil {
		g.logger.Debug("credential check failed", "model", model, "error", err.Error())
		return false
	}
	return true
}

// Models returns the model definitions used by this provider.
func (g *Generator) Models() []wallpapergen.ModelInfo {
	image := Imagen4Info
	image.Name = g.imageModel
	validation := GeminiFlashInfo
	validation.Name = g.validationModel
	return []wallpapergen.ModelInfo{image, validation}
}

// Close drops the cached client.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	// The genai.Client doesn't require explicit closing in the current SDK
	g.client = nil
	g.clientKey = ""
	return nil
}

// clientFor returns a client authenticated with credential.
func (g *Generator) clientFor(ctx context.Context, credential wallpapergen.Credential) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.clientKey == credential {
		return g.client, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     credential.Reveal(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g.client = client
	g.clientKey = credential
	return client, nil
}

// classifyError maps an SDK error onto the two failure kinds.
func classifyError(err error, model string) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return wallpapergen.NewGenerationFailed(model, 0, err)
	}
	if IsKeyRejection(apiErr) {
		return wallpapergen.NewCredentialRejected(model, apiErr.Code, err)
	}
	return wallpapergen.NewGenerationFailed(model, apiErr.Code, err)
}

// IsKeyRejection reports whether the API refused the key itself.
// Gemini answers an unknown key with 400 INVALID_ARGUMENT and reason
// API_KEY_INVALID, so the message and details are checked as well as the status.
func IsKeyRejection(apiErr genai.APIError) bool {
	if apiErr.Code == http.StatusUnauthorized || apiErr.Status == "UNAUTHENTICATED" {
		return true
	}
	if strings.Contains(apiErr.Message, "API key not valid") || strings.Contains(apiErr.Message, "API_KEY_INVALID") {
		return true
	}
	return strings.Contains(fmt.Sprint(apiErr.Details), "API_KEY_INVALID")
}
