package store

import (
	"context"
	"sync"

	"github.com/mhpenta/wallpapergen"
)

// MemoryStore keeps records in memory. Nothing survives the process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]string
}

// Ensure MemoryStore implements RecordStore.
var _ wallpapergen.RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.records[name]
	if !ok {
		return "", wallpapergen.ErrRecordNotFound
	}
	return value, nil
}

func (s *MemoryStore) Put(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}
