package wallpapergen

import (
	"log/slog"
	"time"

	"github.com/mhpenta/wallpapergen/retry"
)

// SessionOption configures the Session.
type SessionOption func(*Session)

// WithLogger sets a structured logger for the session.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorage sets a storage backend for downloaded images.
func WithStorage(storage Storage) SessionOption {
	return func(s *Session) {
		s.storage = storage
	}
}

// WithRetry sets the retry policy for generation requests.
// Only GenerationFailed errors are retried; a rejected credential never is.
func WithRetry(policy *retry.Policy) SessionOption {
	return func(s *Session) {
		s.retry = policy.WithRetryable(IsRetryable)
	}
}

// WithClock overrides the time source used for download names.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSession creates a Session in PhaseBootstrapping. Call Bootstrap before use.
//
// Example:
//
//	vault := wallpapergen.NewVault(store, logger)
//	gen := gemini.New(nil)
//	session := wallpapergen.NewSession(vault, gen, gen,
//	    wallpapergen.WithLogger(logger),
//	    wallpapergen.WithStorage(wallpapergen.NewDirStorage(".")),
//	)
//	if err := session.Bootstrap(ctx); err != nil {
//	    return err
//	}
func NewSession(vault *Vault, validator CredentialValidator, generator ImageGenerator, opts ...SessionOption) *Session {
	s := &Session{
		id:        newSessionID(),
		vault:     vault,
		validator: validator,
		generator: generator,
		logger:    slog.Default(),
		retry:     retry.None(),
		now:       time.Now,
		phase:     PhaseBootstrapping,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
