// Package api holds the JSON wire types shared by the proxy server and its client.
package api

// Route paths.
const (
	PathGenerate = "/api/generate"
	PathTestKey  = "/api/test-key"
	PathHealth   = "/healthz"
)

// Error messages returned by the proxy server.
const (
	MessageMissingFields    = "Prompt and API key are required."
	MessageMissingKey       = "API key is required."
	MessageInvalidKey       = "API key not valid. Please check your key."
	MessageGenerateFailed   = "Failed to generate images."
	MessageTestKeyInvalid   = "Invalid API key"
	MessageMethodNotAllowed = "Method Not Allowed"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	APIKey string `json:"apiKey"`
}

// Image is one generated image as sent over the wire.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// GenerateResponse is the success body of POST /api/generate.
type GenerateResponse struct {
	Images []Image `json:"images"`
}

// TestKeyRequest is the body of POST /api/test-key.
type TestKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// TestKeyResponse is the body returned by POST /api/test-key.
type TestKeyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of every other non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
