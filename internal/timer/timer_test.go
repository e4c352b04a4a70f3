package timer

import (
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
)

type failingGateway struct{}

func (failingGateway) Load(string) (json.RawMessage, error) { return nil, stderrors.New("no disk") }
func (failingGateway) Save(string, any) error                { return stderrors.New("no disk") }

func newTestTimer(t *testing.T, opts ...Option) (*Timer, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	return New(sched, opts...), sched
}

func TestNewDefaults(t *testing.T) {
	tm, _ := newTestTimer(t)
	s := tm.Snapshot()
	if s.Mode != models.ModeFocus || s.Remaining != 1500 || s.Running {
		t.Errorf("unexpected initial state: %+v", s)
	}
	if s.BreakSeconds != 300 {
		t.Errorf("expected 300s break, got %d", s.BreakSeconds)
	}
	if tm.ButtonLabel() != "Start" {
		t.Errorf("expected Start, got %s", tm.ButtonLabel())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	tm, sched := newTestTimer(t)
	tm.Start()
	tm.Start()
	if sched.Active() != 1 {
		t.Fatalf("expected one registration, got %d", sched.Active())
	}

	sched.Advance(3)
	if got := tm.Snapshot().Remaining; got != 1497 {
		t.Errorf("expected 1497 after 3 ticks, got %d", got)
	}
}

func TestPausePreservesRemaining(t *testing.T) {
	tm, sched := newTestTimer(t)
	tm.Start()
	sched.Advance(10)
	tm.Pause()
	tm.Pause()

	if sched.Active() != 0 {
		t.Errorf("pause should cancel the registration, %d live", sched.Active())
	}
	sched.Advance(5)
	s := tm.Snapshot()
	if s.Remaining != 1490 || s.Running {
		t.Errorf("unexpected state after pause: %+v", s)
	}
	if tm.ButtonLabel() != "Resume" {
		t.Errorf("expected Resume, got %s", tm.ButtonLabel())
	}

	tm.Start()
	if tm.ButtonLabel() != "Pause" {
		t.Errorf("expected Pause, got %s", tm.ButtonLabel())
	}
}

func TestReset(t *testing.T) {
	tm, sched := newTestTimer(t)
	if err := tm.Configure(3, 2); err != nil {
		t.Fatal(err)
	}
	tm.Start()
	sched.Advance(5) // into break
	tm.Reset()

	s := tm.Snapshot()
	if s.Mode != models.ModeFocus || s.Remaining != 3 || s.Running {
		t.Errorf("unexpected state after reset: %+v", s)
	}
	if sched.Active() != 0 {
		t.Errorf("reset should cancel the registration")
	}
}

func TestSwitchExactlyOnceOnUnderflow(t *testing.T) {
	tm, sched := newTestTimer(t)
	if err := tm.Configure(2, 4); err != nil {
		t.Fatal(err)
	}

	var changes []ModeChange
	tm.OnModeChange(func(mc ModeChange) { changes = append(changes, mc) })
	tm.Start()

	want := []int{1, 0}
	for _, w := range want {
		sched.Advance(1)
		if got := tm.Snapshot().Remaining; got != w {
			t.Fatalf("remaining = %d, want %d", got, w)
		}
	}
	if len(changes) != 0 {
		t.Fatalf("switched before underflow")
	}

	sched.Advance(1)
	s := tm.Snapshot()
	if len(changes) != 1 {
		t.Fatalf("expected exactly one switch, got %d", len(changes))
	}
	if changes[0].From != models.ModeFocus || changes[0].To != models.ModeBreak {
		t.Errorf("unexpected change: %+v", changes[0])
	}
	if s.Mode != models.ModeBreak || s.Remaining != 4 || !s.Running {
		t.Errorf("break should start running at full length: %+v", s)
	}
	if sched.Active() != 1 {
		t.Errorf("expected a single live registration after switch, got %d", sched.Active())
	}

	// Break runs out and flips back to focus
	sched.Advance(5)
	if len(changes) != 2 || tm.Snapshot().Mode != models.ModeFocus {
		t.Errorf("expected switch back to focus, changes=%d state=%+v", len(changes), tm.Snapshot())
	}
}

func TestRemainingNeverObservedNegative(t *testing.T) {
	tm, sched := newTestTimer(t)
	_ = tm.Configure(1, 1)

	var seen []int
	tm.OnTick(func(s State) { seen = append(seen, s.Remaining) })
	tm.Start()
	sched.Advance(10)

	if len(seen) != 10 {
		t.Fatalf("expected 10 tick notifications, got %d", len(seen))
	}
	for i, r := range seen {
		if r < 0 {
			t.Errorf("tick %d observed remaining %d", i, r)
		}
	}
}

func TestStaleTickIgnored(t *testing.T) {
	tm, sched := newTestTimer(t)
	_ = tm.Configure(10, 5)

	var stale func()
	spy := schedulerFunc(func(d time.Duration, fn func()) func() {
		stale = fn
		return sched.Every(d, fn)
	})
	tm.sched = spy

	tm.Start()
	first := stale
	tm.Pause()
	tm.Start()

	first()
	if got := tm.Snapshot().Remaining; got != 10 {
		t.Errorf("tick from a cancelled registration changed state: %d", got)
	}
}

type schedulerFunc func(time.Duration, func()) func()

func (f schedulerFunc) Every(d time.Duration, fn func()) func() { return f(d, fn) }

func TestTickWhilePausedDoesNothing(t *testing.T) {
	tm, _ := newTestTimer(t)
	tm.Tick()
	if tm.Snapshot().Remaining != 1500 {
		t.Error("tick on a stopped timer changed state")
	}
}

func TestConfigure(t *testing.T) {
	mem := storage.NewMemoryStore()
	tm, sched := newTestTimer(t, WithGateway(mem))
	tm.Start()
	sched.Advance(7)

	if err := tm.Configure(30*60, 10*60); err != nil {
		t.Fatal(err)
	}
	s := tm.Snapshot()
	if s.Mode != models.ModeFocus || s.Remaining != 1800 || s.Running {
		t.Errorf("unexpected state after configure: %+v", s)
	}

	raw, _ := mem.Load(constants.KeyPomodoro)
	var cfg models.TimerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.FocusSeconds != 1800 || cfg.BreakSeconds != 600 {
		t.Errorf("unexpected stored config: %+v", cfg)
	}
}

func TestConfigure_RejectsNonPositive(t *testing.T) {
	tests := []struct {
		name       string
		focus, brk int
	}{
		{"zero focus", 0, 300},
		{"negative focus", -5, 300},
		{"zero break", 1500, 0},
		{"both negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, sched := newTestTimer(t)
			tm.Start()
			sched.Advance(2)

			err := tm.Configure(tt.focus, tt.brk)
			if !stderrors.Is(err, errors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			s := tm.Snapshot()
			if s.FocusSeconds != 1500 || s.BreakSeconds != 300 || s.Remaining != 1498 || !s.Running {
				t.Errorf("rejected configure changed state: %+v", s)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"running", State{Running: true, Remaining: 1500, FocusSeconds: 1500}, "Pause"},
		{"fresh", State{Remaining: 1500, FocusSeconds: 1500}, "Start"},
		{"part way", State{Remaining: 600, FocusSeconds: 1500}, "Resume"},
		{"at zero", State{Remaining: 0, FocusSeconds: 1500}, "Start"},
		{"break longer than focus", State{Mode: models.ModeBreak, Remaining: 2000, FocusSeconds: 1500}, "Start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.state); got != tt.want {
				t.Errorf("Label() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	mem := storage.NewMemoryStore()
	_ = mem.Save(constants.KeyPomodoro, models.TimerConfig{FocusSeconds: 50 * 60, BreakSeconds: 10 * 60})

	tm, _ := newTestTimer(t, WithGateway(mem))
	if err := tm.Load(); err != nil {
		t.Fatal(err)
	}
	s := tm.Snapshot()
	if s.Remaining != 3000 || s.BreakSeconds != 600 {
		t.Errorf("stored durations not applied: %+v", s)
	}
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `nope`},
		{"zero focus", `{"focus_seconds": 0, "break_seconds": 300}`},
		{"negative break", `{"focus_seconds": 60, "break_seconds": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemoryStore()
			mem.Put(constants.KeyPomodoro, []byte(tt.raw))

			tm, _ := newTestTimer(t, WithGateway(mem), WithDefaults(20*60, 4*60))
			err := tm.Load()
			if !stderrors.Is(err, errors.ErrMalformed) {
				t.Errorf("expected malformed error, got %v", err)
			}
			s := tm.Snapshot()
			if s.FocusSeconds != 1200 || s.BreakSeconds != 240 || s.Remaining != 1200 {
				t.Errorf("expected configured defaults, got %+v", s)
			}
		})
	}

	tm, _ := newTestTimer(t, WithGateway(failingGateway{}))
	if err := tm.Load(); !stderrors.Is(err, errors.ErrPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
	if tm.Snapshot().FocusSeconds != constants.DefaultFocusSeconds {
		t.Error("failed load should keep default durations")
	}
}

func TestHistory(t *testing.T) {
	mem := storage.NewMemoryStore()
	done := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)
	tm, sched := newTestTimer(t, WithGateway(mem), WithClock(func() time.Time { return done }))
	_ = tm.Configure(1, 1)
	tm.Start()
	sched.Advance(4) // focus ends, then break ends

	h := tm.History()
	if len(h) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(h))
	}
	if h[0].Mode != models.ModeFocus || h[1].Mode != models.ModeBreak {
		t.Errorf("unexpected session modes: %+v", h)
	}
	if h[0].ID == "" || h[0].ID == h[1].ID {
		t.Errorf("sessions need distinct ids: %+v", h)
	}
	if !h[0].CompletedAt.Equal(done) || h[0].PlannedSeconds != 1 {
		t.Errorf("unexpected session: %+v", h[0])
	}

	reloaded, _ := newTestTimer(t, WithGateway(mem))
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if len(reloaded.History()) != 2 {
		t.Errorf("history not persisted")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	tm, sched := newTestTimer(t)
	_ = tm.Configure(1, 1)
	tm.Start()
	// Each phase takes two ticks to underflow
	sched.Advance(2 * (constants.MaxSessionHistory + 10))

	if got := len(tm.History()); got != constants.MaxSessionHistory {
		t.Errorf("expected %d sessions, got %d", constants.MaxSessionHistory, got)
	}
}

func TestFormat(t *testing.T) {
	tests := map[int]string{0: "00:00", 59: "00:59", 1500: "25:00", 3661: "61:01", -3: "00:00"}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestTickerScheduler(t *testing.T) {
	fired := make(chan struct{}, 10)
	cancel := TickerScheduler{}.Every(5*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	cancel()
	cancel()
}
