package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps values in process memory. Used for --ephemeral sessions and tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Init() error  { return nil }
func (s *MemoryStore) Open() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Load(key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *MemoryStore) Save(key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

// Put stores raw bytes without validation, for seeding malformed fixtures.
func (s *MemoryStore) Put(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) GetConfigPath() string {
	return ":memory:"
}
