package habits

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
	"github.com/julianstephens/constancia/internal/utils"
)

type EventKind int

const (
	EventLoaded EventKind = iota
	EventCreated
	EventToggled
	EventRenamed
	EventDeleted
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Kind  EventKind
	Habit models.Habit
}

// DayStatus is one day of a habit's weekly strip.
type DayStatus struct {
	Key     string
	Weekday time.Weekday
	Done    bool
	Future  bool
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Store owns the habit list and persists it as a whole under one key.
type Store struct {
	mu        sync.Mutex
	gw        storage.Gateway
	habits    []models.Habit
	lastID    int64
	now       func() time.Time
	loc       *time.Location
	observers []func(Event)
}

func New(gw storage.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:  gw,
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after every successful mutation.
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

func (s *Store) today() time.Time {
	return s.now().In(s.loc)
}

// Today returns today's date key in the store's location.
func (s *Store) Today() string {
	return utils.TodayKey(s.now(), s.loc)
}

// Load replaces the in-memory list with what the gateway holds. A missing key
// yields an empty list. Gateway failures and malformed data also yield an
// empty list; the recoverable error is logged and returned for display.
func (s *Store) Load() error {
	habits, err := s.read()

	s.mu.Lock()
	s.habits = habits
	s.lastID = 0
	for _, h := range habits {
		if h.ID > s.lastID {
			s.lastID = h.ID
		}
	}
	s.refreshLocked()
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Falling back to empty habit list", "error", err)
	}
	s.notify(Event{Kind: EventLoaded})
	return err
}

func (s *Store) read() ([]models.Habit, error) {
	raw, err := s.gw.Load(constants.KeyHabits)
	if err != nil {
		return []models.Habit{}, &errors.PersistenceError{Op: "load", Key: constants.KeyHabits, Err: err}
	}
	if raw == nil {
		return []models.Habit{}, nil
	}

	var habits []models.Habit
	if err := json.Unmarshal(raw, &habits); err != nil {
		return []models.Habit{}, &errors.MalformedDataError{Key: constants.KeyHabits, Err: err}
	}
	if err := checkShape(habits); err != nil {
		return []models.Habit{}, &errors.MalformedDataError{Key: constants.KeyHabits, Err: err}
	}

	for i := range habits {
		if habits[i].Completions == nil {
			habits[i].Completions = make(map[string]bool)
		}
	}
	return habits, nil
}

func checkShape(habits []models.Habit) error {
	seen := make(map[int64]bool, len(habits))
	for i, h := range habits {
		if h.ID == 0 {
			return fmt.Errorf("habit %d has no id", i)
		}
		if seen[h.ID] {
			return fmt.Errorf("duplicate habit id %d", h.ID)
		}
		seen[h.ID] = true
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("habit %d has no name", h.ID)
		}
		if h.Record < 0 {
			return fmt.Errorf("habit %d has negative record", h.ID)
		}
	}
	return nil
}

// persistLocked writes the whole list. Callers hold s.mu.
func (s *Store) persistLocked() error {
	if err := s.gw.Save(constants.KeyHabits, s.habits); err != nil {
		logger.Warn("Failed to save habits", "error", err)
		return &errors.PersistenceError{Op: "save", Key: constants.KeyHabits, Err: err}
	}
	return nil
}

func (s *Store) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) indexLocked(id int64) int {
	for i, h := range s.habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// refreshLocked recomputes every streak for today and lifts records.
func (s *Store) refreshLocked() {
	today := s.today()
	for i := range s.habits {
		updateStreak(&s.habits[i], today)
	}
}

func updateStreak(h *models.Habit, today time.Time) {
	h.Streak = ComputeStreak(h.Completions, today)
	if h.Streak > h.Record {
		h.Record = h.Streak
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Validation("name", "must not be empty")
	}
	return name, nil
}

// Create adds a habit. Its color is the palette entry at the current habit
// count, so deleting and re-adding can repeat a color.
func (s *Store) Create(name string) (models.Habit, error) {
	name, err := validateName(name)
	if err != nil {
		return models.Habit{}, err
	}

	s.mu.Lock()
	h := models.Habit{
		ID:          s.nextIDLocked(),
		Name:        name,
		Color:       constants.HabitColors[len(s.habits)%len(constants.HabitColors)],
		Completions: make(map[string]bool),
		CreatedAt:   s.now(),
	}
	s.habits = append(s.habits, h)
	saveErr := s.persistLocked()
	out := h.Clone()
	s.mu.Unlock()

	logger.Debug("Habit created", "id", h.ID, "name", h.Name)
	s.notify(Event{Kind: EventCreated, Habit: out})
	return out, saveErr
}

// Toggle flips the completion flag for day. Days after today are rejected.
// A save failure is reported as a PersistenceError after the in-memory
// change has been applied.
func (s *Store) Toggle(id int64, day string) (models.Habit, error) {
	if _, err := utils.ParseDateKey(day, s.loc); err != nil {
		return models.Habit{}, errors.Validation("date", err.Error())
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Habit{}, errors.NotFound("habit", id)
	}

	today := s.today()
	// Keys are zero-padded so lexical order is calendar order
	if day > utils.FormatDateKey(today) {
		s.mu.Unlock()
		return models.Habit{}, errors.Validation("date", fmt.Sprintf("%s is in the future", day))
	}

	h := &s.habits[i]
	if h.Completions == nil {
		h.Completions = make(map[string]bool)
	}
	if h.Completions[day] {
		delete(h.Completions, day)
	} else {
		h.Completions[day] = true
	}
	updateStreak(h, today)

	saveErr := s.persistLocked()
	out := h.Clone()
	s.mu.Unlock()

	logger.Debug("Habit toggled", "id", id, "day", day, "done", out.Completions[day], "streak", out.Streak)
	s.notify(Event{Kind: EventToggled, Habit: out})
	return out, saveErr
}

func (s *Store) Rename(id int64, name string) (models.Habit, error) {
	name, err := validateName(name)
	if err != nil {
		return models.Habit{}, err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Habit{}, errors.NotFound("habit", id)
	}
	s.habits[i].Name = name
	saveErr := s.persistLocked()
	out := s.habits[i].Clone()
	s.mu.Unlock()

	s.notify(Event{Kind: EventRenamed, Habit: out})
	return out, saveErr
}

// Delete removes the habit permanently. Unknown ids return a NotFoundError.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return errors.NotFound("habit", id)
	}
	removed := s.habits[i]
	s.habits = append(s.habits[:i:i], s.habits[i+1:]...)
	saveErr := s.persistLocked()
	s.mu.Unlock()

	logger.Debug("Habit deleted", "id", id)
	s.notify(Event{Kind: EventDeleted, Habit: removed})
	return saveErr
}

func (s *Store) Get(id int64) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Habit{}, errors.NotFound("habit", id)
	}
	updateStreak(&s.habits[i], s.today())
	return s.habits[i].Clone(), nil
}

// FindByName returns the first habit whose name matches, ignoring case.
func (s *Store) FindByName(name string) (models.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	for _, h := range s.habits {
		if strings.EqualFold(h.Name, name) {
			return h.Clone(), true
		}
	}
	return models.Habit{}, false
}

// List returns copies of all habits in insertion order with streaks and
// records brought up to date for today.
func (s *Store) List() []models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	out := make([]models.Habit, len(s.habits))
	for i, h := range s.habits {
		out[i] = h.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.habits)
}

// Week returns the Sunday-first week containing ref for one habit.
func (s *Store) Week(id int64, ref time.Time) ([]DayStatus, error) {
	h, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	start := utils.StartOfWeek(ref.In(s.loc))
	week := make([]DayStatus, 7)
	for i := range week {
		d := start.AddDate(0, 0, i)
		key := utils.FormatDateKey(d)
		week[i] = DayStatus{
			Key:     key,
			Weekday: d.Weekday(),
			Done:    h.Completions[key],
			Future:  key > today,
		}
	}
	return week, nil
}

// Habits is List under the name the calendar reads it by.
func (s *Store) Habits() []models.Habit {
	return s.List()
}
