// Package verse keeps the verse of the day shown beside the timer.
package verse

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
)

// Default is the verse shown until the user picks another.
func Default() models.Verse {
	return models.Verse{
		Reference: constants.DefaultVerseReference,
		Text:      constants.DefaultVerseText,
	}
}

type Store struct {
	mu      sync.Mutex
	gw      storage.Gateway
	current models.Verse
}

func New(gw storage.Gateway) *Store {
	return &Store{gw: gw, current: Default()}
}

// Load reads the stored verse, keeping the default when nothing usable is
// stored.
func (s *Store) Load() error {
	v, err := s.read()
	if err != nil {
		logger.Warn("Using default verse", "error", err)
	}

	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
	return err
}

func (s *Store) read() (models.Verse, error) {
	raw, err := s.gw.Load(constants.KeyVerse)
	if err != nil {
		return Default(), &errors.PersistenceError{Op: "load", Key: constants.KeyVerse, Err: err}
	}
	if raw == nil {
		return Default(), nil
	}

	var v models.Verse
	if err := json.Unmarshal(raw, &v); err != nil {
		return Default(), &errors.MalformedDataError{Key: constants.KeyVerse, Err: err}
	}
	if err := validate(v); err != nil {
		return Default(), &errors.MalformedDataError{Key: constants.KeyVerse, Err: err}
	}
	return v, nil
}

func validate(v models.Verse) error {
	if strings.TrimSpace(v.Reference) == "" {
		return errors.Validation("reference", "must not be empty")
	}
	if strings.TrimSpace(v.Text) == "" {
		return errors.Validation("text", "must not be empty")
	}
	return nil
}

func (s *Store) Get() models.Verse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the verse of the day with a lookup result.
func (s *Store) Set(v models.Verse) error {
	v.Reference = strings.TrimSpace(v.Reference)
	v.Text = strings.TrimSpace(v.Text)
	if err := validate(v); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = v
	s.mu.Unlock()

	if err := s.gw.Save(constants.KeyVerse, v); err != nil {
		logger.Warn("Failed to save verse", "error", err)
		return &errors.PersistenceError{Op: "save", Key: constants.KeyVerse, Err: err}
	}
	return nil
}
