// Package store provides RecordStore implementations for the credential vault:
// a JSON file, a SQLite database and the OS keychain.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mhpenta/wallpapergen"
)

// FileName is the record file inside a FileStore directory.
const FileName = "records.json"

// FileStore keeps records in a single JSON object on disk.
// Writes go to a temp file that is renamed over the original.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// Ensure FileStore implements RecordStore.
var _ wallpapergen.RecordStore = (*FileStore)(nil)

// NewFileStore creates a FileStore in dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the path to the record file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Get returns the named record.
func (s *FileStore) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := records[name]
	if !ok {
		return "", wallpapergen.ErrRecordNotFound
	}
	return value, nil
}

// Put creates or replaces the named record. An unparseable file is replaced.
func (s *FileStore) Put(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if errors.Is(err, wallpapergen.ErrRecordsCorrupt) {
		records = make(map[string]string)
	} else if err != nil {
		return err
	}

	records[name] = value
	return s.save(records)
}

// Delete removes the named record. An unparseable file is replaced by an empty one.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if errors.Is(err, wallpapergen.ErrRecordsCorrupt) {
		return s.save(make(map[string]string))
	}
	if err != nil {
		return err
	}
	if _, ok := records[name]; !ok {
		return nil
	}

	delete(records, name)
	return s.save(records)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	records := make(map[string]string)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", wallpapergen.ErrRecordsCorrupt, FileName, err)
	}
	return records, nil
}

func (s *FileStore) save(records map[string]string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".records-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path())
}
