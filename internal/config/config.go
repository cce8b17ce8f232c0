// Package config loads wallpapergen settings from defaults, an optional .env
// file, WALLPAPERGEN_* environment variables and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhpenta/wallpapergen"
	"github.com/spf13/pflag"
)

// Backend selects how the remote service is reached.
const (
	BackendDirect = "direct"
	BackendProxy  = "proxy"
)

// Storage selects where the encrypted records live.
const (
	StorageFile    = "file"
	StorageSQLite  = "sqlite"
	StorageKeyring = "keyring"
	StorageMemory  = "memory"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WALLPAPERGEN_"

// Config holds runtime settings for the CLI, REPL and proxy server.
type Config struct {
	Backend         string
	ProxyURL        string
	GeminiBaseURL   string
	Storage         string
	DataDir         string
	ImageModel      string
	ValidationModel string
	OutputDir       string
	ListenAddr      string
	RetryAttempts   int
	RetryDelay      time.Duration
	LogLevel        string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendDirect
	c.ProxyURL = "http://127.0.0.1:8080"
	c.GeminiBaseURL = ""
	c.Storage = StorageFile
	c.DataDir = DefaultDataDir()
	c.ImageModel = string(wallpapergen.DefaultImageModel)
	c.ValidationModel = string(wallpapergen.DefaultValidationModel)
	c.OutputDir = "."
	c.ListenAddr = ":8080"
	c.RetryAttempts = 1
	c.RetryDelay = 2 * time.Second
	c.LogLevel = "info"
}

// Load builds a Config from defaults, envFile (skipped when missing) and the
// process environment. Flags are applied afterwards by the caller via BindFlags.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays values found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	str("BACKEND", &c.Backend)
	str("PROXY_URL", &c.ProxyURL)
	str("GEMINI_BASE_URL", &c.GeminiBaseURL)
	str("STORAGE", &c.Storage)
	str("DATA_DIR", &c.DataDir)
	str("IMAGE_MODEL", &c.ImageModel)
	str("VALIDATION_MODEL", &c.ValidationModel)
	str("OUTPUT_DIR", &c.OutputDir)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "RETRY_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRETRY_ATTEMPTS %q: %w", EnvPrefix, v, err)
		}
		c.RetryAttempts = n
	}
	if v, ok := lookup(EnvPrefix + "RETRY_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sRETRY_DELAY %q: %w", EnvPrefix, v, err)
		}
		c.RetryDelay = d
	}
	return nil
}

// BindFlags registers flags that overwrite c when set.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "remote access: direct or proxy")
	fs.StringVar(&c.ProxyURL, "proxy-url", c.ProxyURL, "proxy server base URL (backend=proxy)")
	fs.StringVar(&c.Storage, "storage", c.Storage, "record storage: file, sqlite, keyring or memory")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for the encrypted records")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "directory for downloaded wallpapers")
	fs.IntVar(&c.RetryAttempts, "retry", c.RetryAttempts, "total attempts per generation (1 disables retry)")
	fs.DurationVar(&c.RetryDelay, "retry-delay", c.RetryDelay, "wait before the first retry")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate checks enumerated fields and ranges.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendDirect:
	case BackendProxy:
		if c.ProxyURL == "" {
			errs = append(errs, errors.New("proxy-url is required when backend=proxy"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	switch c.Storage {
	case StorageFile, StorageSQLite, StorageKeyring, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry-delay must not be negative, got %s", c.RetryDelay))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
