package wallpapergen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mhpenta/wallpapergen/retry"
)

// Phase is the orchestrator state.
type Phase int

const (
	PhaseBootstrapping Phase = iota
	PhaseNeedsSetup
	PhaseIdle
	PhaseLoading
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseNeedsSetup:
		return "needs_setup"
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Ready reports whether a usable credential has been adopted.
func (p Phase) Ready() bool {
	return p == PhaseIdle || p == PhaseLoading || p == PhaseError
}

// User-facing messages.
const (
	MessageGenerationFailed   = "Image generation failed. Please try again in a moment."
	MessageCredentialRejected = "Your API key was rejected. Please enter a valid API key."
	MessageStoredKeyInvalid   = "Your saved API key is no longer valid. Please enter a new one."
	MessageCredentialInvalid  = "The API key is not valid. Check the key and try again."
	MessageCredentialRequired = "Please enter an API key."
	MessageCredentialNotSaved = "The API key could not be saved. Please try again."
)

var (
	// ErrGenerationInFlight is returned when generate is invoked while a request is running.
	ErrGenerationInFlight = errors.New("a generation request is already in flight")

	// ErrBootstrapInFlight is returned when a second bootstrap starts before the first finished.
	ErrBootstrapInFlight = errors.New("session bootstrap already in progress")

	// ErrNeedsSetup is returned when an operation requires an adopted credential.
	ErrNeedsSetup = errors.New("no usable API key configured")

	// ErrInvalidCredential is returned when a candidate credential fails validation.
	ErrInvalidCredential = errors.New("API key failed validation")

	// ErrNothingToRemix is returned by Remix before any successful generation.
	ErrNothingToRemix = errors.New("no previous prompt to remix")

	// ErrNoImageSelected is returned by Download when the detail view is closed.
	ErrNoImageSelected = errors.New("no image selected")

	// ErrImageNotFound is returned by Select for an id outside the current batch.
	ErrImageNotFound = errors.New("image not found in current batch")

	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("session closed")
)

// State is a snapshot of the session for the presentation layer.
type State struct {
	Phase              Phase
	HasCredential      bool
	MaskedCredential   string
	PromptText         string
	OriginalPromptText string
	Images             []GeneratedImage
	ErrorMessage       string
	SetupMessage       string
	Selected           *GeneratedImage
}

// SetupRequired reports whether the user must configure a credential.
func (s State) SetupRequired() bool {
	return s.Phase == PhaseNeedsSetup
}

// CanRemix reports whether a last successful prompt exists.
func (s State) CanRemix() bool {
	return s.OriginalPromptText != ""
}

// Session is the application orchestrator. It owns the in-memory credential,
// the prompts and the current batch, and coordinates the Vault, the
// CredentialValidator and the ImageGenerator.
//
// Transitions are serialized by a mutex. Remote and cryptographic calls run
// outside the lock; PhaseLoading guards against a second generate request.
type Session struct {
	id        string
	vault     *Vault
	validator CredentialValidator
	generator ImageGenerator
	logger    *slog.Logger
	retry     retry.Retrier
	storage   Storage
	now       func() time.Time

	mu             sync.Mutex
	closed         bool
	bootstrapping  bool
	credential     Credential
	phase          Phase
	prompt         string
	originalPrompt string
	images         []GeneratedImage
	selectedID     string
	errorMessage   string
	setupMessage   string
}

// ID returns the session identifier used in log records.
func (s *Session) ID() string {
	return s.id
}

// Bootstrap restores a stored credential: load it, validate it, and either
// adopt it (PhaseIdle) or discard it (PhaseNeedsSetup).
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.bootstrapping {
		s.mu.Unlock()
		return ErrBootstrapInFlight
	}
	if s.phase == PhaseLoading {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.bootstrapping = true
	s.phase = PhaseBootstrapping
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.bootstrapping = false
		s.mu.Unlock()
	}()

	credential, ok := s.vault.Load(ctx)
	if !ok {
		s.logger.Info("no stored credential, setup required", "session_id", s.id)
		s.enterSetup("")
		return nil
	}

	if !s.validator.Validate(ctx, credential) {
		s.logger.Warn("stored credential failed validation, clearing it",
			"session_id", s.id,
			"credential", credential,
		)
		if err := s.vault.Clear(ctx); err != nil {
			s.logger.Error("failed to clear stored credential", "session_id", s.id, "error", err.Error())
		}
		s.enterSetup(MessageStoredKeyInvalid)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.phase = PhaseIdle
	s.setupMessage = ""
	s.logger.Info("stored credential restored", "session_id", s.id, "credential", credential)
	return nil
}

// Configure validates a candidate credential and, only if it passes, saves
// and adopts it. A rejected candidate is never persisted; the session keeps
// its previous state and records an inline setup message.
func (s *Session) Configure(ctx context.Context, candidate string) error {
	credential := Credential(strings.TrimSpace(candidate))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.bootstrapping {
		s.mu.Unlock()
		return ErrBootstrapInFlight
	}
	if credential.IsZero() {
		s.setupMessage = MessageCredentialRequired
		s.mu.Unlock()
		return ErrMissingCredential
	}
	s.mu.Unlock()

	if !s.validator.Validate(ctx, credential) {
		s.logger.Warn("candidate credential failed validation", "session_id", s.id, "credential", credential)
		s.mu.Lock()
		s.setupMessage = MessageCredentialInvalid
		s.mu.Unlock()
		return ErrInvalidCredential
	}

	if err := s.vault.Save(ctx, credential); err != nil {
		s.logger.Error("failed to save credential", "session_id", s.id, "error", err.Error())
		s.mu.Lock()
		s.setupMessage = MessageCredentialNotSaved
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.setupMessage = ""
	if !s.phase.Ready() {
		s.phase = PhaseIdle
	}
	s.logger.Info("credential configured", "session_id", s.id, "credential", credential)
	return nil
}

// ResetCredential forgets the credential and returns to setup.
// With rotateKey the encryption key is replaced as well.
func (s *Session) ResetCredential(ctx context.Context, rotateKey bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.phase == PhaseLoading {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.mu.Unlock()

	var err error
	if rotateKey {
		err = s.vault.Reset(ctx)
	} else {
		err = s.vault.Clear(ctx)
	}
	if err != nil {
		return err
	}

	s.enterSetup("")
	s.logger.Info("credential reset", "session_id", s.id, "rotate_key", rotateKey)
	return nil
}

// SetPrompt replaces the editable prompt text.
func (s *Session) SetPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = text
}

// Generate runs one generation request for the current prompt.
//
// Calling it while a request is in flight is a no-op that returns
// ErrGenerationInFlight. A CredentialRejected failure clears the vault and
// returns to setup; any other failure moves to PhaseError with the credential
// and prompt preserved for a retry.
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseLoading {
		s.mu.Unlock()
		s.logger.Debug("generate ignored, request in flight", "session_id", s.id)
		return ErrGenerationInFlight
	}
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	prompt := s.prompt
	if err := ValidatePrompt(prompt); err != nil {
		s.mu.Unlock()
		return err
	}
	credential := s.credential
	s.phase = PhaseLoading
	s.errorMessage = ""
	s.images = nil
	s.selectedID = ""
	s.mu.Unlock()

	s.logger.Debug("starting generation", "session_id", s.id, "prompt_length", len(prompt))
	start := time.Now()

	var images []GeneratedImage
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		images, genErr = s.generator.Generate(ctx, prompt, credential)
		if genErr == nil && len(images) == 0 {
			genErr = NewGenerationFailed("", 0, errEmptyBatch)
		}
		return genErr
	})
	duration := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if IsCredentialRejected(err) {
			s.logger.Warn("credential rejected after close, clearing it", "session_id", s.id)
			if clearErr := s.vault.Clear(context.WithoutCancel(ctx)); clearErr != nil {
				s.logger.Error("failed to clear stored credential", "session_id", s.id, "error", clearErr.Error())
			}
		}
		return ErrSessionClosed
	}

	switch {
	case err == nil:
		s.images = images
		s.originalPrompt = prompt
		s.phase = PhaseIdle
		s.logger.Info("generation completed",
			"session_id", s.id,
			"duration_ms", duration.Milliseconds(),
			"image_count", len(images),
		)
		return nil

	case IsCredentialRejected(err):
		s.logger.Warn("credential rejected during generation, clearing it",
			"session_id", s.id,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		if clearErr := s.vault.Clear(ctx); clearErr != nil {
			s.logger.Error("failed to clear stored credential", "session_id", s.id, "error", clearErr.Error())
		}
		s.credential = ""
		s.phase = PhaseNeedsSetup
		s.setupMessage = MessageCredentialRejected
		return err

	default:
		s.logger.Error("generation failed",
			"session_id", s.id,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		s.phase = PhaseError
		s.errorMessage = MessageGenerationFailed
		return err
	}
}

// Remix restores the last successful prompt into the editable prompt and
// closes the detail view. It does not start a generation.
func (s *Session) Remix() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.originalPrompt == "" {
		return ErrNothingToRemix
	}
	s.prompt = s.originalPrompt
	s.selectedID = ""
	return nil
}

// Select opens the detail view for the image with id.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	s.selectedID = id
	return nil
}

// CloseViewer closes the detail view.
func (s *Session) CloseViewer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = ""
}

// Download saves the selected image through the configured Storage.
func (s *Session) Download(ctx context.Context) (*StorageResult, error) {
	s.mu.Lock()
	i := s.findLocked(s.selectedID)
	if s.selectedID == "" || i < 0 {
		s.mu.Unlock()
		return nil, ErrNoImageSelected
	}
	img := s.images[i]
	storage := s.storage
	s.mu.Unlock()

	result, err := SaveImage(ctx, storage, img, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("image downloaded", "session_id", s.id, "image_id", img.ID, "location", result.Location)
	return result, nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Phase:              s.phase,
		HasCredential:      !s.credential.IsZero(),
		PromptText:         s.prompt,
		OriginalPromptText: s.originalPrompt,
		Images:             slices.Clone(s.images),
		ErrorMessage:       s.errorMessage,
		SetupMessage:       s.setupMessage,
	}
	if st.HasCredential {
		st.MaskedCredential = s.credential.String()
	}
	if i := s.findLocked(s.selectedID); i >= 0 {
		selected := s.images[i]
		st.Selected = &selected
	}
	return st
}

// Close discards the in-memory credential and batch. The session cannot be reused.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.credential = ""
	s.images = nil
	s.selectedID = ""
	return nil
}

func (s *Session) readyLocked() error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.bootstrapping:
		return ErrBootstrapInFlight
	case !s.phase.Ready() || s.credential.IsZero():
		return ErrNeedsSetup
	}
	return nil
}

func (s *Session) enterSetup(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.phase = PhaseNeedsSetup
	s.setupMessage = message
}

func (s *Session) findLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.images, func(img GeneratedImage) bool {
		return img.ID == id
	})
}

func newSessionID() string {
	return uuid.NewString()
}
