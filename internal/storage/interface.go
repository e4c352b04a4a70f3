package storage

import (
	"encoding/json"
	"errors"
)

// ErrNotInitialized is returned by Open when the backing store has never been created.
var ErrNotInitialized = errors.New("storage not initialized, run 'constancia init' first")

// Gateway is the key-value persistence contract the stores depend on.
type Gateway interface {
	// Load returns the stored JSON for key, or nil with no error when the key is absent.
	Load(key string) (json.RawMessage, error)
	// Save serializes value and fully overwrites whatever is stored under key.
	Save(key string, value any) error
}

// Provider is a Gateway with a lifecycle.
type Provider interface {
	Gateway

	// Lifecycle
	Init() error
	Open() error
	Close() error

	Keys() ([]string, error)
	Delete(key string) error

	// Utils
	GetConfigPath() string
}

func encode(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("value is not valid JSON")
		}
		return raw, nil
	}
	return json.Marshal(value)
}
