package wallpapergen

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyPrompt       = fmt.Errorf("%w: prompt cannot be empty", ErrInvalidRequest)
	ErrMissingCredential = fmt.Errorf("%w: credential is required", ErrInvalidRequest)
	ErrPromptTooLong     = fmt.Errorf("%w: prompt exceeds maximum length", ErrInvalidRequest)
)

// MaxPromptLength is the maximum prompt size in bytes accepted before augmentation.
const MaxPromptLength = 4096

// ValidatePrompt validates a text prompt. Whitespace-only prompts are empty.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return ErrEmptyPrompt
	}
	if len(trimmed) > MaxPromptLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPromptTooLong, len(trimmed), MaxPromptLength)
	}
	return nil
}

// ValidateCredential checks that a credential is present.
func ValidateCredential(credential Credential) error {
	if credential.IsZero() {
		return ErrMissingCredential
	}
	return nil
}

// IsInvalidRequest reports whether err was raised before any network call.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
