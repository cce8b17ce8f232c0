package wallpapergen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCredential Credential = "AIzaSyTEST-credential-0123456789"

func readRecord(t *testing.T, store *memoryRecordStore) encryptedRecord {
	t.Helper()
	raw, ok := store.raw(CredentialRecordName)
	require.True(t, ok, "credential record missing")

	var rec encryptedRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestVault_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)

	require.NoError(t, v.Save(ctx, testCredential))

	got, ok := v.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, testCredential, got)

	// a fresh Vault over the same store sees the same credential
	got, ok = NewVault(store, nil).Load(ctx)
	require.True(t, ok)
	assert.Equal(t, testCredential, got)
}

func TestVault_LoadAbsent(t *testing.T) {
	got, ok := NewVault(newMemoryRecordStore(), nil).Load(context.Background())
	assert.False(t, ok)
	assert.True(t, got.IsZero())
}

func TestVault_RecordShape(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	require.NoError(t, NewVault(store, nil).Save(ctx, testCredential))

	rec := readRecord(t, store)
	iv, err := base64.StdEncoding.DecodeString(rec.IV)
	require.NoError(t, err)
	assert.Len(t, iv, NonceSize)

	data, err := base64.StdEncoding.DecodeString(rec.Data)
	require.NoError(t, err)
	// GCM appends a 16-byte tag
	assert.Len(t, data, len(testCredential)+16)
}

func TestVault_NoPlaintextInStorage(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	require.NoError(t, NewVault(store, nil).Save(ctx, testCredential))

	for _, name := range []string{KeyRecordName, CredentialRecordName} {
		raw, ok := store.raw(name)
		require.True(t, ok)
		assert.NotContains(t, raw, testCredential.Reveal())
	}
}

func TestVault_FreshIVPerSave(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		require.NoError(t, v.Save(ctx, testCredential))
		rec := readRecord(t, store)
		assert.False(t, seen[rec.IV], "IV reused on save %d", i)
		seen[rec.IV] = true
	}
}

func TestVault_TamperedCiphertextIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))

	original := readRecord(t, store)
	iv, _ := base64.StdEncoding.DecodeString(original.IV)
	data, _ := base64.StdEncoding.DecodeString(original.Data)

	flip := func(field []byte, i int) []byte {
		out := append([]byte(nil), field...)
		out[i] ^= 0x01
		return out
	}

	for i := range data {
		tampered := encryptedRecord{IV: original.IV, Data: base64.StdEncoding.EncodeToString(flip(data, i))}
		raw, _ := json.Marshal(tampered)
		store.set(CredentialRecordName, string(raw))

		_, ok := v.Load(ctx)
		require.False(t, ok, "data byte %d flipped but credential loaded", i)
		_, exists := store.raw(CredentialRecordName)
		require.False(t, exists, "record should be removed after failed decryption")
	}

	for i := range iv {
		tampered := encryptedRecord{IV: base64.StdEncoding.EncodeToString(flip(iv, i)), Data: original.Data}
		raw, _ := json.Marshal(tampered)
		store.set(CredentialRecordName, string(raw))

		_, ok := v.Load(ctx)
		require.False(t, ok, "iv byte %d flipped but credential loaded", i)
	}
}

func TestVault_MalformedRecordIsAbsent(t *testing.T) {
	tests := map[string]string{
		"not json":     "plain text",
		"bad iv":       `{"iv":"!!","data":"AAAA"}`,
		"short iv":     `{"iv":"AAAA","data":"AAAAAAAAAAAAAAAAAAAAAA=="}`,
		"bad data":     `{"iv":"AAAAAAAAAAAAAAAA","data":"!!"}`,
		"empty object": `{}`,
	}

	for name, stored := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemoryRecordStore()
			v := NewVault(store, nil)
			require.NoError(t, v.Save(ctx, testCredential))
			store.set(CredentialRecordName, stored)

			_, ok := v.Load(ctx)
			assert.False(t, ok)
			_, exists := store.raw(CredentialRecordName)
			assert.False(t, exists)
		})
	}
}

func TestVault_KeyRegeneratedMakesRecordAbsent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))

	_, err := NewKeyStore(store).Rotate(ctx)
	require.NoError(t, err)

	_, ok := v.Load(ctx)
	assert.False(t, ok)
	_, exists := store.raw(CredentialRecordName)
	assert.False(t, exists)
}

func TestVault_CorruptKeyOnLoad(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))
	store.set(KeyRecordName, "garbage")

	_, ok := v.Load(ctx)
	assert.False(t, ok)
	_, exists := store.raw(CredentialRecordName)
	assert.False(t, exists)
}

func TestVault_SaveRecoversFromCorruptKey(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	store.set(KeyRecordName, "garbage")
	v := NewVault(store, nil)

	require.NoError(t, v.Save(ctx, testCredential))
	got, ok := v.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, testCredential, got)
}

func TestVault_SaveErrors(t *testing.T) {
	ctx := context.Background()

	err := NewVault(newMemoryRecordStore(), nil).Save(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	store := newMemoryRecordStore()
	store.PutErr = errStoreUnavailable
	err = NewVault(store, nil).Save(ctx, testCredential)
	assert.ErrorIs(t, err, ErrEncryptionFailure)
}

func TestVault_TransientReadErrorKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))

	store.GetErr = errStoreUnavailable
	_, ok := v.Load(ctx)
	assert.False(t, ok)

	store.GetErr = nil
	got, ok := v.Load(ctx)
	require.True(t, ok, "record must survive a transient read failure")
	assert.Equal(t, testCredential, got)
}

func TestVault_KeyReadOutageKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))
	sealed, ok := store.raw(CredentialRecordName)
	require.True(t, ok)

	store.failGet(KeyRecordName, errors.New("keychain locked"))
	_, ok = v.Load(ctx)
	assert.False(t, ok)

	after, ok := store.raw(CredentialRecordName)
	require.True(t, ok, "record must survive a key read failure")
	assert.Equal(t, sealed, after)

	store.failGet(KeyRecordName, nil)
	got, ok := v.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, testCredential, got)
}

func TestVault_ClearKeepsKey(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))
	keyBefore, _ := store.raw(KeyRecordName)

	require.NoError(t, v.Clear(ctx))
	_, ok := v.Load(ctx)
	assert.False(t, ok)

	keyAfter, exists := store.raw(KeyRecordName)
	require.True(t, exists)
	assert.Equal(t, keyBefore, keyAfter)

	// clearing an empty vault is not an error
	assert.NoError(t, v.Clear(ctx))
}

func TestVault_ResetRotatesKey(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	v := NewVault(store, nil)
	require.NoError(t, v.Save(ctx, testCredential))
	keyBefore, _ := store.raw(KeyRecordName)

	require.NoError(t, v.Reset(ctx))
	_, ok := v.Load(ctx)
	assert.False(t, ok)

	keyAfter, _ := store.raw(KeyRecordName)
	assert.NotEqual(t, keyBefore, keyAfter)
}

func TestUnseal_WrongKey(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)

	iv, ct, err := seal(k1, []byte("secret"))
	require.NoError(t, err)

	_, err = unseal(k2, iv, ct)
	assert.True(t, errors.Is(err, ErrDecryptionFailure))
}
