package dreams

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
)

type EventKind int

const (
	EventLoaded EventKind = iota
	EventAdded
	EventUpdated
	EventDeleted
)

type Event struct {
	Kind  EventKind
	Dream models.Dream
}

// Store owns the dream board.
type Store struct {
	mu        sync.Mutex
	gw        storage.Gateway
	dreams    []models.Dream
	lastID    int64
	now       func() time.Time
	observers []func(Event)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(gw storage.Gateway, opts ...Option) *Store {
	s := &Store{gw: gw, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	observers := append([]func(Event){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// Load reads the board from the gateway. Missing, unreadable or malformed
// data leaves an empty board; the latter two are returned for display.
func (s *Store) Load() error {
	dreams, err := s.read()

	s.mu.Lock()
	s.dreams = dreams
	s.lastID = 0
	for _, d := range dreams {
		if d.ID > s.lastID {
			s.lastID = d.ID
		}
	}
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Falling back to empty dream board", "error", err)
	}
	s.notify(Event{Kind: EventLoaded})
	return err
}

func (s *Store) read() ([]models.Dream, error) {
	raw, err := s.gw.Load(constants.KeyDreams)
	if err != nil {
		return []models.Dream{}, &errors.PersistenceError{Op: "load", Key: constants.KeyDreams, Err: err}
	}
	if raw == nil {
		return []models.Dream{}, nil
	}

	var dreams []models.Dream
	if err := json.Unmarshal(raw, &dreams); err != nil {
		return []models.Dream{}, &errors.MalformedDataError{Key: constants.KeyDreams, Err: err}
	}

	seen := make(map[int64]bool, len(dreams))
	for i, d := range dreams {
		var shapeErr error
		switch {
		case d.ID == 0:
			shapeErr = fmt.Errorf("dream %d has no id", i)
		case seen[d.ID]:
			shapeErr = fmt.Errorf("duplicate dream id %d", d.ID)
		case strings.TrimSpace(d.Name) == "":
			shapeErr = fmt.Errorf("dream %d has no name", d.ID)
		}
		if shapeErr != nil {
			return []models.Dream{}, &errors.MalformedDataError{Key: constants.KeyDreams, Err: shapeErr}
		}
		seen[d.ID] = true
	}
	return dreams, nil
}

func (s *Store) persistLocked() error {
	if err := s.gw.Save(constants.KeyDreams, s.dreams); err != nil {
		logger.Warn("Failed to save dreams", "error", err)
		return &errors.PersistenceError{Op: "save", Key: constants.KeyDreams, Err: err}
	}
	return nil
}

func (s *Store) indexLocked(id int64) int {
	for i, d := range s.dreams {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Add appends a dream. An empty img means the presentation layer shows a
// placeholder.
func (s *Store) Add(name, img string) (models.Dream, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Dream{}, errors.Validation("name", "must not be empty")
	}

	s.mu.Lock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	d := models.Dream{ID: id, Name: name, Img: strings.TrimSpace(img)}
	s.dreams = append(s.dreams, d)
	saveErr := s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Kind: EventAdded, Dream: d})
	return d, saveErr
}

// Update changes the fields that are non-nil. A non-nil name must not be
// blank; a non-nil empty img clears the image.
func (s *Store) Update(id int64, name, img *string) (models.Dream, error) {
	var newName string
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return models.Dream{}, errors.Validation("name", "must not be empty")
		}
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Dream{}, errors.NotFound("dream", id)
	}
	if name != nil {
		s.dreams[i].Name = newName
	}
	if img != nil {
		s.dreams[i].Img = strings.TrimSpace(*img)
	}
	d := s.dreams[i]
	saveErr := s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, Dream: d})
	return d, saveErr
}

func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return errors.NotFound("dream", id)
	}
	d := s.dreams[i]
	s.dreams = append(s.dreams[:i:i], s.dreams[i+1:]...)
	saveErr := s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Kind: EventDeleted, Dream: d})
	return saveErr
}

func (s *Store) Get(id int64) (models.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.dreams[i], nil
	}
	return models.Dream{}, errors.NotFound("dream", id)
}

// List returns a copy of the board in insertion order.
func (s *Store) List() []models.Dream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Dream(nil), s.dreams...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dreams)
}
