package wallpapergen

import "context"

// ImageGenerator is the contract for the remote image generation call.
// Implement this interface to add a new way of reaching the service
// (see provider/gemini for direct calls and provider/proxy for the proxied variant).
type ImageGenerator interface {
	// Generate issues one batch request for prompt using credential.
	// Failures are reported as *GenerationError so callers can tell a
	// rejected credential from any other failure.
	Generate(ctx context.Context, prompt string, credential Credential) ([]GeneratedImage, error)
}

// CredentialValidator confirms a credential is currently accepted by the remote service.
type CredentialValidator interface {
	// Validate returns true only when a minimal remote round trip succeeds.
	// It never returns an error: every failure path resolves to false.
	Validate(ctx context.Context, credential Credential) bool
}

// RecordStore is the persistent storage boundary used by the KeyStore and the Vault.
// It holds small named string records (see KeyRecordName and CredentialRecordName).
type RecordStore interface {
	// Get returns the record value, or ErrRecordNotFound.
	Get(ctx context.Context, name string) (string, error)

	// Put creates or replaces the named record.
	Put(ctx context.Context, name, value string) error

	// Delete removes the named record. Deleting a missing record is not an error.
	Delete(ctx context.Context, name string) error
}
