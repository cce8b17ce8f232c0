package wallpapergen

import (
	"context"
	"errors"
	"sync"
)

// MockImageGenerator is a mock implementation of ImageGenerator.
type MockImageGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string, credential Credential) ([]GeneratedImage, error)

	mu    sync.Mutex
	calls int
}

func (m *MockImageGenerator) Generate(ctx context.Context, prompt string, credential Credential) ([]GeneratedImage, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, credential)
	}
	return nil, nil
}

func (m *MockImageGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockValidator is a mock implementation of CredentialValidator.
type MockValidator struct {
	ValidateFunc func(ctx context.Context, credential Credential) bool

	mu    sync.Mutex
	calls int
}

func (m *MockValidator) Validate(ctx context.Context, credential Credential) bool {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, credential)
	}
	return true
}

func (m *MockValidator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memoryRecordStore is an in-memory RecordStore with optional failure injection.
type memoryRecordStore struct {
	mu      sync.Mutex
	records map[string]string

	GetErr error
	PutErr error
	// NameErr fails Get for the named records only.
	NameErr map[string]error
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{records: make(map[string]string)}
}

func (s *memoryRecordStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	if err := s.NameErr[name]; err != nil {
		return "", err
	}
	v, ok := s.records[name]
	if !ok {
		return "", ErrRecordNotFound
	}
	return v, nil
}

func (s *memoryRecordStore) Put(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.records[name] = value
	return nil
}

func (s *memoryRecordStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}

func (s *memoryRecordStore) failGet(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NameErr == nil {
		s.NameErr = make(map[string]error)
	}
	s.NameErr[name] = err
}

func (s *memoryRecordStore) raw(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[name]
	return v, ok
}

func (s *memoryRecordStore) set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = value
}

var errStoreUnavailable = errors.New("store unavailable")
