package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperrors "github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/logger"
)

type document struct {
	Version int                        `json:"version"`
	Values  map[string]json.RawMessage `json:"values"`
}

// JSONStore keeps every key in one JSON document on disk.
type JSONStore struct {
	path string
	mu   sync.Mutex
	doc  *document
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.doc = &document{
		Version: 1,
		Values:  make(map[string]json.RawMessage),
	}
	return s.write()
}

// Open loads the document. A document that does not parse is moved aside to
// <path>.corrupt-<timestamp> and replaced with an empty one; the returned
// MalformedDataError is recoverable and the store is usable.
func (s *JSONStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return s.recoverLocked(err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]json.RawMessage)
	}
	s.doc = doc
	return nil
}

func (s *JSONStore) recoverLocked(parseErr error) error {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(s.path, aside); err != nil {
		return fmt.Errorf("failed to move corrupt storage aside: %w", err)
	}
	logger.Warn("Storage document is corrupt, starting empty", "path", s.path, "kept", aside, "error", parseErr)

	s.doc = &document{
		Version: 1,
		Values:  make(map[string]json.RawMessage),
	}
	if err := s.write(); err != nil {
		return err
	}
	return &apperrors.MalformedDataError{Key: filepath.Base(s.path), Err: parseErr}
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) write() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	// Write to a sibling temp file then rename so a crash never leaves half a document
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) Load(key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, fmt.Errorf("storage not loaded")
	}
	raw, ok := s.doc.Values[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (s *JSONStore) Save(key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}
	s.doc.Values[key] = data
	return s.write()
}

func (s *JSONStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, fmt.Errorf("storage not loaded")
	}
	keys := make([]string, 0, len(s.doc.Values))
	for k := range s.doc.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *JSONStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}
	delete(s.doc.Values, key)
	return s.write()
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
