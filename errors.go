package wallpapergen

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyStoreCorrupt is returned when stored key material cannot be parsed.
	ErrKeyStoreCorrupt = errors.New("encryption key store corrupt")

	// ErrDecryptionFailure is returned when an encrypted record fails authenticated decryption.
	ErrDecryptionFailure = errors.New("credential decryption failed")

	// ErrEncryptionFailure is returned when the credential could not be encrypted and saved.
	ErrEncryptionFailure = errors.New("credential encryption failed")

	// ErrInvalidRequest is returned before any network call when the prompt or credential is missing.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrCredentialRejected means the remote service refused the credential.
	ErrCredentialRejected = errors.New("credential rejected by remote service")

	// ErrGenerationFailed covers every other remote or transport failure, including an empty batch.
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrRecordNotFound is returned by a RecordStore when the named record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordsCorrupt is returned by a RecordStore whose backing data cannot be parsed.
	ErrRecordsCorrupt = errors.New("record storage corrupt")
)

// FailureKind classifies a failed generation call.
type FailureKind int

const (
	FailureGeneration FailureKind = iota
	FailureCredentialRejected
)

func (k FailureKind) String() string {
	if k == FailureCredentialRejected {
		return "credential_rejected"
	}
	return "generation_failed"
}

// GenerationError is returned by ImageGenerator implementations when a remote call fails.
type GenerationError struct {
	Kind   FailureKind
	Model  string
	Status int   // Remote status code, when known
	Err    error // Underlying error from the transport or provider
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (model %s)", e.sentinel(), e.Model)
	}
	return fmt.Sprintf("%s (model %s): %v", e.sentinel(), e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCredentialRejected) and errors.Is(err, ErrGenerationFailed)
// follow the classification.
func (e *GenerationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *GenerationError) sentinel() error {
	if e.Kind == FailureCredentialRejected {
		return ErrCredentialRejected
	}
	return ErrGenerationFailed
}

// NewCredentialRejected wraps err as a credential rejection.
func NewCredentialRejected(model string, status int, err error) *GenerationError {
	return &GenerationError{Kind: FailureCredentialRejected, Model: model, Status: status, Err: err}
}

// NewGenerationFailed wraps err as a generic, retryable generation failure.
func NewGenerationFailed(model string, status int, err error) *GenerationError {
	return &GenerationError{Kind: FailureGeneration, Model: model, Status: status, Err: err}
}

// IsCredentialRejected reports whether err means the credential must be discarded.
func IsCredentialRejected(err error) bool {
	return errors.Is(err, ErrCredentialRejected)
}

// IsRetryable reports whether err is a generation failure worth another attempt.
// Rejected credentials and invalid requests are never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGenerationFailed) && !IsCredentialRejected(err)
}
