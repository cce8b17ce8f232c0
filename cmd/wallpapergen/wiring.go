package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/internal/config"
	"github.com/mhpenta/wallpapergen/provider/gemini"
	"github.com/mhpenta/wallpapergen/provider/proxy"
	"github.com/mhpenta/wallpapergen/retry"
	"github.com/mhpenta/wallpapergen/store"
)

// Backend generates images and validates credentials against one remote.
type Backend interface {
	wallpapergen.ImageGenerator
	wallpapergen.CredentialValidator
}

// keyringDirName is the encrypted-file keyring fallback inside the data directory.
const keyringDirName = "keyring"

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func newBackend(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	if cfg.Backend == config.BackendProxy {
		c, err := proxy.New(proxy.Config{BaseURL: cfg.ProxyURL, Logger: logger})
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	return gemini.New(&gemini.Config{
		ImageModel:      wallpapergen.Model(cfg.ImageModel),
		ValidationModel: wallpapergen.Model(cfg.ValidationModel),
		BaseURL:         cfg.GeminiBaseURL,
		Logger:          logger,
	}), nil
}

// openStore returns the RecordStore selected by cfg and a func releasing it.
func (app *App) openStore(ctx context.Context, cfg *config.Config) (wallpapergen.RecordStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage {
	case config.StorageMemory:
		return store.NewMemoryStore(), noop, nil

	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := store.OpenSQLite(ctx, filepath.Join(cfg.DataDir, store.DBFileName))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StorageKeyring:
		s, err := store.OpenKeyring(store.KeyringConfig{
			FileDir:      filepath.Join(cfg.DataDir, keyringDirName),
			FilePassword: app.keyringPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open keyring: %w", err)
		}
		return s, noop, nil

	default:
		return store.NewFileStore(cfg.DataDir), noop, nil
	}
}

// keyringPassword unlocks the encrypted-file keyring backend.
func (app *App) keyringPassword(prompt string) (string, error) {
	if !app.IsTerminal(app.StdinFd) {
		return "", errors.New("keyring file backend needs a terminal to read its password")
	}
	fmt.Fprintf(app.Err, "%s: ", prompt)
	b, err := app.ReadPassword(app.StdinFd)
	fmt.Fprintln(app.Err)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readSecret reads an API key without echo on a terminal, or one line from In otherwise.
func (app *App) readSecret(prompt string) (string, error) {
	if app.IsTerminal(app.StdinFd) {
		fmt.Fprint(app.Err, prompt)
		b, err := app.ReadPassword(app.StdinFd)
		fmt.Fprintln(app.Err)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(app.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// environment is everything one command needs, built from the resolved config.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	vault   *wallpapergen.Vault
	backend Backend
	now     func() time.Time
	close   func() error
}

func (app *App) newEnvironment(ctx context.Context, cfg *config.Config) (*environment, error) {
	logger, err := newLogger(app.Err, cfg)
	if err != nil {
		return nil, err
	}

	records, closeStore, err := app.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := app.NewBackend(cfg, logger)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	logger.Debug("environment ready",
		"backend", cfg.Backend,
		"storage", cfg.Storage,
		"data_dir", cfg.DataDir,
	)

	return &environment{
		cfg:     cfg,
		logger:  logger,
		vault:   wallpapergen.NewVault(records, logger),
		backend: backend,
		now:     app.Now,
		close: func() error {
			var errs []error
			if c, ok := backend.(io.Closer); ok {
				errs = append(errs, c.Close())
			}
			errs = append(errs, closeStore())
			return errors.Join(errs...)
		},
	}, nil
}

func (env *environment) newSession() *wallpapergen.Session {
	opts := []wallpapergen.SessionOption{
		wallpapergen.WithLogger(env.logger),
		wallpapergen.WithStorage(wallpapergen.NewDirStorage(env.cfg.OutputDir)),
		wallpapergen.WithClock(env.now),
	}
	if env.cfg.RetryAttempts > 1 {
		opts = append(opts, wallpapergen.WithRetry(retry.New(env.cfg.RetryAttempts, env.cfg.RetryDelay)))
	}
	return wallpapergen.NewSession(env.vault, env.backend, env.backend, opts...)
}

// keyringBackends lists the OS keychains usable on this machine, for `key status`.
func keyringBackends() []string {
	available := keyring.AvailableBackends()
	names := make([]string, len(available))
	for i, b := range available {
		names[i] = string(b)
	}
	return names
}

func defaultIsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}
