package wallpapergen

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	// CredentialRecordName is the storage name of the encrypted credential record.
	CredentialRecordName = "gemini-wallpaper-api-key-encrypted"

	// NonceSize is the AES-GCM IV length in bytes.
	NonceSize = 12
)

// encryptedRecord is the stored form of the credential.
type encryptedRecord struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// Vault keeps the credential encrypted at rest.
// Only the encrypted record and the exported key ever reach the RecordStore.
type Vault struct {
	store  RecordStore
	keys   *KeyStore
	logger *slog.Logger

	mu sync.Mutex
}

// NewVault creates a Vault over store, using a KeyStore on the same store.
func NewVault(store RecordStore, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		store:  store,
		keys:   NewKeyStore(store),
		logger: logger,
	}
}

// Save encrypts credential under the installation key with a fresh IV and persists it.
func (v *Vault) Save(ctx context.Context, credential Credential) error {
	if err := ValidateCredential(credential); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.keys.GetOrCreateKey(ctx)
	if errors.Is(err, ErrKeyStoreCorrupt) {
		// Nothing stored under the unreadable key can be recovered, so start over.
		v.logger.Warn("encryption key unreadable, generating a new one", "error", err.Error())
		key, err = v.keys.Rotate(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	iv, ciphertext, err := seal(key, []byte(credential.Reveal()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	record, err := json.Marshal(encryptedRecord{
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	if err := v.store.Put(ctx, CredentialRecordName, string(record)); err != nil {
		return fmt.Errorf("%w: writing record: %v", ErrEncryptionFailure, err)
	}

	v.logger.Debug("credential saved", "credential", credential)
	return nil
}

// Load returns the stored credential, or false when there is none.
//
// A record that cannot be decoded or decrypted (wrong key, corruption,
// tampering) is removed and reported as absent. Load never fails for that path.
// Storage read failures report absent and leave the record in place.
func (v *Vault) Load(ctx context.Context) (Credential, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, err := v.store.Get(ctx, CredentialRecordName)
	if errors.Is(err, ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		v.logger.Warn("reading credential record failed", "error", err.Error())
		return "", false
	}

	plaintext, err := v.open(ctx, stored)
	if err != nil && !errors.Is(err, ErrDecryptionFailure) && !errors.Is(err, ErrKeyStoreCorrupt) {
		v.logger.Warn("reading encryption key failed", "error", err.Error())
		return "", false
	}
	if err != nil {
		v.logger.Warn("stored credential unusable, clearing it", "error", err.Error())
		if err := v.store.Delete(ctx, CredentialRecordName); err != nil {
			v.logger.Error("clearing credential record failed", "error", err.Error())
		}
		return "", false
	}

	return Credential(plaintext), true
}

// Clear removes the credential record. The encryption key is kept.
func (v *Vault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Delete(ctx, CredentialRecordName); err != nil {
		return fmt.Errorf("clearing credential record: %w", err)
	}
	return nil
}

// Reset clears the credential record and replaces the encryption key.
func (v *Vault) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Delete(ctx, CredentialRecordName); err != nil {
		return fmt.Errorf("clearing credential record: %w", err)
	}
	if _, err := v.keys.Rotate(ctx); err != nil {
		return err
	}
	return nil
}

func (v *Vault) open(ctx context.Context, stored string) ([]byte, error) {
	key, err := v.keys.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}

	var record encryptedRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		return nil, fmt.Errorf("%w: malformed record: %v", ErrDecryptionFailure, err)
	}
	iv, err := base64.StdEncoding.DecodeString(record.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed iv: %v", ErrDecryptionFailure, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed data: %v", ErrDecryptionFailure, err)
	}

	return unseal(key, iv, ciphertext)
}

// seal encrypts plaintext with AES-GCM under a new random 12-byte IV.
func seal(key *EncryptionKey, plaintext []byte) (iv, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}

	return iv, aead.Seal(nil, iv, plaintext, nil), nil
}

func unseal(key *EncryptionKey, iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != NonceSize {
		return nil, fmt.Errorf("%w: iv is %d bytes, want %d", ErrDecryptionFailure, len(iv), NonceSize)
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	return plaintext, nil
}

func newGCM(key *EncryptionKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.raw)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
