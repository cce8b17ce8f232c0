package store

import (
	"context"
	"errors"
	"io/fs"

	"github.com/99designs/keyring"
	"github.com/mhpenta/wallpapergen"
)

// ServiceName is the keychain service the records are filed under.
const ServiceName = "wallpapergen"

// KeyringConfig selects and configures the OS keychain backend.
type KeyringConfig struct {
	// Backends limits the backends tried, in order. Empty means all available.
	Backends []keyring.BackendType

	// FileDir and FilePassword configure the encrypted-file fallback backend.
	FileDir      string
	FilePassword keyring.PromptFunc
}

// KeyringStore keeps records in the OS keychain via 99designs/keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// Ensure KeyringStore implements RecordStore.
var _ wallpapergen.RecordStore = (*KeyringStore)(nil)

// OpenKeyring opens the keychain described by cfg.
func OpenKeyring(cfg KeyringConfig) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          cfg.Backends,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         cfg.FilePassword,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return NewKeyringStore(ring), nil
}

// NewKeyringStore wraps an already opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Get returns the named record.
func (s *KeyringStore) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	item, err := s.ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", wallpapergen.ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// Put creates or replaces the named record.
func (s *KeyringStore) Put(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ring.Set(keyring.Item{
		Key:   name,
		Data:  []byte(value),
		Label: ServiceName + " " + name,
	})
}

// Delete removes the named record.
func (s *KeyringStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.ring.Remove(name)
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
