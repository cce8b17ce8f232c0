package wallpapergen

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	// KeyRecordName is the storage name of the exported encryption key.
	KeyRecordName = "gemini-wallpaper-enc-key"

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
)

// EncryptionKey is the installation's symmetric key.
type EncryptionKey struct {
	raw []byte
}

// Bytes returns a copy of the raw key material.
func (k *EncryptionKey) Bytes() []byte {
	return slices.Clone(k.raw)
}

// jsonWebKey is the exportable JWK form of an AES-GCM key.
type jsonWebKey struct {
	Kty    string   `json:"kty"`
	K      string   `json:"k"`
	Alg    string   `json:"alg,omitempty"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops,omitempty"`
}

// KeyStore obtains or creates the persistent local encryption key.
type KeyStore struct {
	store RecordStore
}

// NewKeyStore creates a KeyStore backed by store.
func NewKeyStore(store RecordStore) *KeyStore {
	return &KeyStore{store: store}
}

// GetOrCreateKey returns the stored key, generating and persisting one when none exists.
// Unreadable key material is reported as ErrKeyStoreCorrupt and left in place.
func (ks *KeyStore) GetOrCreateKey(ctx context.Context) (*EncryptionKey, error) {
	stored, err := ks.store.Get(ctx, KeyRecordName)
	if err == nil {
		return ImportKey(stored)
	}
	if errors.Is(err, ErrRecordsCorrupt) {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreCorrupt, err)
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, fmt.Errorf("reading encryption key: %w", err)
	}
	return ks.Rotate(ctx)
}

// Rotate generates a fresh key and overwrites the stored one.
// Every record encrypted under the previous key becomes undecryptable.
func (ks *KeyStore) Rotate(ctx context.Context) (*EncryptionKey, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	exported, err := ExportKey(key)
	if err != nil {
		return nil, err
	}
	if err := ks.store.Put(ctx, KeyRecordName, exported); err != nil {
		return nil, fmt.Errorf("persisting encryption key: %w", err)
	}
	return key, nil
}

// GenerateKey creates a random AES-256 key.
func GenerateKey() (*EncryptionKey, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating encryption key: %w", err)
	}
	return &EncryptionKey{raw: raw}, nil
}

// ExportKey serializes key as a JSON Web Key.
func ExportKey(key *EncryptionKey) (string, error) {
	data, err := json.Marshal(jsonWebKey{
		Kty:    "oct",
		K:      base64.RawURLEncoding.EncodeToString(key.raw),
		Alg:    "A256GCM",
		Ext:    true,
		KeyOps: []string{"encrypt", "decrypt"},
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportKey parses a JSON Web Key produced by ExportKey.
func ImportKey(serialized string) (*EncryptionKey, error) {
	var jwk jsonWebKey
	if err := json.Unmarshal([]byte(serialized), &jwk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreCorrupt, err)
	}
	if jwk.Kty != "oct" {
		return nil, fmt.Errorf("%w: unexpected key type %q", ErrKeyStoreCorrupt, jwk.Kty)
	}
	raw, err := base64.RawURLEncoding.DecodeString(jwk.K)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreCorrupt, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", ErrKeyStoreCorrupt, len(raw), KeySize)
	}
	return &EncryptionKey{raw: raw}, nil
}
