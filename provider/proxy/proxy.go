// Package proxy implements the generation and validation contracts by calling
// a wallpapergen proxy server instead of the Gemini API directly.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/api"
)

const defaultTimeout = 120 * time.Second

// ErrBaseURLRequired is returned by New without a server address.
var ErrBaseURLRequired = errors.New("proxy base URL is required")

// Config configures the proxy client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the proxy server's /api/generate and /api/test-key routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Client implements the interfaces.
var (
	_ wallpapergen.ImageGenerator      = (*Client)(nil)
	_ wallpapergen.CredentialValidator = (*Client)(nil)
)

// New creates a proxy Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Generate posts the raw prompt and credential; the server applies the
// wallpaper framing and calls the image model.
func (c *Client) Generate(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error) {
	if err := wallpapergen.ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := wallpapergen.ValidateCredential(credential); err != nil {
		return nil, err
	}

	status, body, err := c.post(ctx, api.PathGenerate, api.GenerateRequest{
		Prompt: prompt,
		APIKey: credential.Reveal(),
	})
	if err != nil {
		return nil, wallpapergen.NewGenerationFailed("", 0, err)
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, wallpapergen.NewCredentialRejected("", status, errors.New(errorMessage(body, api.MessageInvalidKey)))
	case status != http.StatusOK:
		return nil, wallpapergen.NewGenerationFailed("", status, errors.New(errorMessage(body, api.MessageGenerateFailed)))
	}

	var resp api.GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wallpapergen.NewGenerationFailed("", status, fmt.Errorf("failed to parse response: %w", err))
	}
	if len(resp.Images) == 0 {
		return nil, wallpapergen.NewGenerationFailed("", status, errors.New("proxy returned no images"))
	}

	images := make([]wallpapergen.GeneratedImage, 0, len(resp.Images))
	for i, wire := range resp.Images {
		mimeType, data, err := wallpapergen.ParseDataURI(wire.URL)
		if err != nil || len(data) == 0 {
			return nil, wallpapergen.NewGenerationFailed("", status, fmt.Errorf("image %d has no data", i))
		}
		images = append(images, wallpapergen.GeneratedImage{
			ID:       wire.ID,
			URL:      wire.URL,
			Data:     data,
			MIMEType: mimeType,
			Index:    i,
		})
	}
	return images, nil
}

// Validate asks the proxy to test the credential. Any failure is false.
func (c *Client) Validate(ctx context.Context, credential wallpapergen.Credential) bool {
	if credential.IsZero() {
		return false
	}

	status, body, err := c.post(ctx, api.PathTestKey, api.TestKeyRequest{APIKey: credential.Reveal()})
	if err != nil {
		c.logger.Debug("credential check request failed", "error", err.Error())
		return false
	}
	if status != http.StatusOK {
		return false
	}

	var resp api.TestKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Success
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("proxy response",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte, fallback string) string {
	var resp api.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return fallback
	}
	return resp.Error
}
