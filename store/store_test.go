package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/99designs/keyring"
	"github.com/mhpenta/wallpapergen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseRecordStore runs the RecordStore contract against s.
func exerciseRecordStore(t *testing.T, s wallpapergen.RecordStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, wallpapergen.ErrRecordNotFound)

	require.NoError(t, s.Put(ctx, wallpapergen.KeyRecordName, `{"kty":"oct"}`))
	require.NoError(t, s.Put(ctx, wallpapergen.CredentialRecordName, `{"iv":"a","data":"b"}`))

	v, err := s.Get(ctx, wallpapergen.KeyRecordName)
	require.NoError(t, err)
	assert.Equal(t, `{"kty":"oct"}`, v)

	require.NoError(t, s.Put(ctx, wallpapergen.KeyRecordName, "replaced"))
	v, err = s.Get(ctx, wallpapergen.KeyRecordName)
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)

	require.NoError(t, s.Delete(ctx, wallpapergen.CredentialRecordName))
	_, err = s.Get(ctx, wallpapergen.CredentialRecordName)
	assert.ErrorIs(t, err, wallpapergen.ErrRecordNotFound)

	// deleting twice is fine, and other records survive
	require.NoError(t, s.Delete(ctx, wallpapergen.CredentialRecordName))
	v, err = s.Get(ctx, wallpapergen.KeyRecordName)
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)
}

func TestMemoryStore(t *testing.T) {
	exerciseRecordStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseRecordStore(t, NewFileStore(filepath.Join(t.TempDir(), "data")))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, NewFileStore(dir).Put(ctx, "a", "1"))

	v, err := NewFileStore(dir).Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	var records map[string]string
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Equal(t, map[string]string{"a": "1"}, records)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), "data")
	s := NewFileStore(dir)
	require.NoError(t, s.Put(context.Background(), "a", "1"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	info, err = os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))
	s := NewFileStore(dir)
	ctx := context.Background()

	_, err := s.Get(ctx, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, wallpapergen.ErrRecordsCorrupt)
	assert.NotErrorIs(t, err, wallpapergen.ErrRecordNotFound)

	// Put starts over
	require.NoError(t, s.Put(ctx, "a", "1"))
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestFileStore_CorruptFileDelete(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, wallpapergen.ErrRecordNotFound)
}

func TestVault_RecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))
	ctx := context.Background()
	vault := wallpapergen.NewVault(s, nil)

	_, ok := vault.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, vault.Save(ctx, "AIzaSTORE-0123456789"))
	got, ok := vault.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "AIzaSTORE-0123456789", got.Reveal())

	require.NoError(t, vault.Save(ctx, "AIzaSTORE-9876543210"))
	got, ok = vault.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "AIzaSTORE-9876543210", got.Reveal())

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))
	require.NoError(t, vault.Clear(ctx))
	require.NoError(t, vault.Reset(ctx))
	_, ok = vault.Load(ctx)
	assert.False(t, ok)
}

func TestFileStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileStore(t.TempDir()).Put(ctx, "a", "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseRecordStore(t, s)
}

func TestSQLiteStore_PersistsAndMigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "a", "1"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestKeyringStore_Array(t *testing.T) {
	exerciseRecordStore(t, NewKeyringStore(keyring.NewArrayKeyring(nil)))
}

func TestKeyringStore_FileBackend(t *testing.T) {
	s, err := OpenKeyring(KeyringConfig{
		Backends:     []keyring.BackendType{keyring.FileBackend},
		FileDir:      t.TempDir(),
		FilePassword: keyring.FixedStringPrompt("test-password"),
	})
	require.NoError(t, err)

	exerciseRecordStore(t, s)
}

func TestVaultOverStores(t *testing.T) {
	sqlite, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	stores := map[string]wallpapergen.RecordStore{
		"memory":  NewMemoryStore(),
		"file":    NewFileStore(t.TempDir()),
		"sqlite":  sqlite,
		"keyring": NewKeyringStore(keyring.NewArrayKeyring(nil)),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			vault := wallpapergen.NewVault(s, nil)

			require.NoError(t, vault.Save(ctx, "AIzaSTORE-0123456789"))

			raw, err := s.Get(ctx, wallpapergen.CredentialRecordName)
			require.NoError(t, err)
			assert.NotContains(t, raw, "AIzaSTORE-0123456789")

			got, ok := vault.Load(ctx)
			require.True(t, ok)
			assert.Equal(t, "AIzaSTORE-0123456789", got.Reveal())
		})
	}
}
