package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/constancia/internal/config"
	"github.com/julianstephens/constancia/internal/constants"
	apperrors "github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/storage"
	"github.com/julianstephens/constancia/internal/timer"
)

var jan10 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestContext(t *testing.T, store storage.Provider) (*Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &Context{
		Store:     store,
		Config:    config.DefaultConfig(),
		ConfigDir: t.TempDir(),
		Location:  time.UTC,
		Now:       func() time.Time { return jan10 },
		Out:       out,
	}, out
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "2025-01-10", false},
		{"today", "2025-01-10", false},
		{"Yesterday", "2025-01-09", false},
		{"2024-12-31", "2024-12-31", false},
		{"2024-13-01", "", true},
		{"tomorrow", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in, jan10)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("", jan10)
	if err != nil || y != 2025 || m != time.January {
		t.Errorf("expected current month, got %d-%d (%v)", y, m, err)
	}
	y, m, err = ParseMonth("2024-02", jan10)
	if err != nil || y != 2024 || m != time.February {
		t.Errorf("expected 2024-02, got %d-%d (%v)", y, m, err)
	}
	if _, _, err := ParseMonth("Feb 2024", jan10); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHabitCommands(t *testing.T) {
	ctx, out := newTestContext(t, storage.NewMemoryStore())

	if err := (&HabitAddCmd{Name: "Read"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := (&HabitAddCmd{Name: "   "}).Run(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}

	out.Reset()
	if err := (&HabitToggleCmd{Habit: "Read", Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !strings.Contains(out.String(), "done on 2025-01-10 (streak 1, record 1)") {
		t.Errorf("unexpected toggle output: %q", out.String())
	}

	out.Reset()
	if err := (&HabitToggleCmd{Habit: "Read", Date: "yesterday"}).Run(ctx); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !strings.Contains(out.String(), "streak 2, record 2") {
		t.Errorf("unexpected toggle output: %q", out.String())
	}

	if err := (&HabitToggleCmd{Habit: "Read", Date: "2025-01-11"}).Run(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected future day to be rejected, got %v", err)
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Read") || !strings.Contains(out.String(), "✓") {
		t.Errorf("unexpected list output: %q", out.String())
	}

	if err := (&HabitRenameCmd{Habit: "Read", Name: "Read 20 pages"}).Run(ctx); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := findHabit(ctx.session.Habits, "Read"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected old name to be gone, got %v", err)
	}
	if err := (&HabitToggleCmd{Habit: "999", Date: "today"}).Run(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found for unknown id, got %v", err)
	}

	if err := (&HabitDeleteCmd{Habit: "Read 20 pages"}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if ctx.session.Habits.Len() != 0 {
		t.Error("expected no habits after delete")
	}
	if err := (&HabitDeleteCmd{Habit: "Read 20 pages"}).Run(ctx); err == nil {
		t.Error("expected error deleting a missing habit")
	}
}

func TestHabitWeekAndCalendar(t *testing.T) {
	ctx, out := newTestContext(t, storage.NewMemoryStore())
	if err := (&HabitAddCmd{Name: "Run"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&HabitToggleCmd{Habit: "Run", Date: "today"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&HabitWeekCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("week failed: %v", err)
	}
	// Friday the 10th is done, Saturday the 11th is still ahead
	if !strings.Contains(out.String(), "○ ○ ○ ○ ○ ● ·") {
		t.Errorf("unexpected week row: %q", out.String())
	}

	out.Reset()
	if err := (&CalendarMonthCmd{Month: "2025-01"}).Run(ctx); err != nil {
		t.Fatalf("calendar failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "January 2025") {
		t.Errorf("unexpected calendar header: %q", out.String())
	}

	out.Reset()
	if err := (&CalendarStatsCmd{}).Run(ctx); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out.String(), "Run") {
		t.Errorf("unexpected stats output: %q", out.String())
	}
}

func TestDreamCommands(t *testing.T) {
	ctx, out := newTestContext(t, storage.NewMemoryStore())

	for _, name := range []string{"Sail", "Paint"} {
		if err := (&DreamAddCmd{Name: name}).Run(ctx); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	dreams := ctx.session.Dreams.List()
	if len(dreams) != 2 {
		t.Fatalf("expected 2 dreams, got %d", len(dreams))
	}

	name := "Sail the Atlantic"
	id := dreams[0].ID
	if err := (&DreamEditCmd{ID: strconv.FormatInt(id, 10), Name: &name}).Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if d, _ := ctx.session.Dreams.Get(id); d.Name != name {
		t.Errorf("expected renamed dream, got %q", d.Name)
	}
	if err := (&DreamEditCmd{ID: "abc"}).Run(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for bad id, got %v", err)
	}

	out.Reset()
	if err := (&DreamRotateCmd{Count: 3}).Run(ctx); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(out.String()), "\n"); strings.Join(got, ",") != "Sail the Atlantic,Paint,Sail the Atlantic" {
		t.Errorf("unexpected rotation: %v", got)
	}

	if err := (&DreamDeleteCmd{ID: strconv.FormatInt(id, 10)}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := (&DreamDeleteCmd{ID: strconv.FormatInt(id, 10)}).Run(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestVerseCommands(t *testing.T) {
	ctx, out := newTestContext(t, storage.NewMemoryStore())

	if err := (&VerseShowCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), constants.DefaultVerseReference) {
		t.Errorf("expected default verse, got %q", out.String())
	}

	if err := (&VerseSetCmd{Reference: "Psalm 23:1", Text: "The Lord is my shepherd"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ctx.session.Verse.Get().Reference; got != "Psalm 23:1" {
		t.Errorf("expected Psalm 23:1, got %s", got)
	}
	if err := (&VerseSetCmd{Reference: "", Text: "x"}).Run(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTimerConfigCmd(t *testing.T) {
	ctx, _ := newTestContext(t, storage.NewMemoryStore())

	if err := (&TimerConfigCmd{Focus: 30, Break: 10}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	st := ctx.session.Timer.Snapshot()
	if st.FocusSeconds != 1800 || st.BreakSeconds != 600 || st.Remaining != 1800 || st.Running {
		t.Errorf("unexpected timer state: %+v", st)
	}
	if err := (&TimerConfigCmd{Focus: 0, Break: 5}).Run(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTimerRunCmd_StopsAfterPhases(t *testing.T) {
	ctx, out := newTestContext(t, storage.NewMemoryStore())
	sched := timer.NewManualScheduler()
	s, err := ctx.Session(sched)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Timer.Configure(1, 1); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- (&TimerRunCmd{Phases: 2}).Run(ctx) }()

	// Ticks arrive from this goroutine while the command prints from its own
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-errc:
			if err != nil {
				t.Fatalf("timer run failed: %v", err)
			}
			got := out.String()
			for _, want := range []string{"focus finished, starting break", "break finished, starting focus"} {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in output, got %q", want, got)
				}
			}
			if s.Timer.Snapshot().Running {
				t.Error("expected timer paused after run")
			}
			return
		case <-deadline:
			t.Fatal("timer run did not stop")
		default:
			sched.Advance(1)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestSessionUsesConfiguredDurations(t *testing.T) {
	ctx, _ := newTestContext(t, storage.NewMemoryStore())
	ctx.Config.Timer.FocusMinutes = 50
	ctx.Config.Timer.BreakMinutes = 10

	s, err := ctx.Session(nil)
	if err != nil {
		t.Fatal(err)
	}
	if st := s.Timer.Snapshot(); st.FocusSeconds != 3000 || st.BreakSeconds != 600 {
		t.Errorf("expected 50/10 minutes, got %+v", st)
	}
}

func TestSessionCollectsMalformedData(t *testing.T) {
	mem := storage.NewMemoryStore()
	mem.Put(constants.KeyHabits, []byte(`{"not":"a list"}`))
	ctx, _ := newTestContext(t, mem)

	s, err := ctx.Session(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Warnings) != 1 || !errors.Is(s.Warnings[0], apperrors.ErrMalformed) {
		t.Errorf("expected one malformed-data warning, got %v", s.Warnings)
	}
	if s.Habits.Len() != 0 {
		t.Error("expected empty habits after fallback")
	}
}

func TestHabitListSurvivesCorruptJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constancia.json")
	if err := os.WriteFile(path, []byte("{{{"), 0600); err != nil {
		t.Fatal(err)
	}
	ctx, out := newTestContext(t, storage.NewJSONStore(path))

	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No habits yet") {
		t.Errorf("expected empty list, got %q", out.String())
	}

	s, err := ctx.Session(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Warnings) != 1 || !errors.Is(s.Warnings[0], apperrors.ErrMalformed) {
		t.Fatalf("expected one malformed-data warning, got %v", s.Warnings)
	}

	// The fresh document accepts writes
	if err := (&HabitAddCmd{Name: "Read"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if s.Habits.Len() != 1 {
		t.Error("expected the new habit")
	}
}

func TestMigrateCmd(t *testing.T) {
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()
	ctx, out := newTestContext(t, store)

	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("expected up-to-date message, got %q", out.String())
	}

	out.Reset()
	if err := (&MigrateCmd{List: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "001 kv") {
		t.Errorf("expected the kv migration listed, got %q", out.String())
	}
}

func TestDoctorCmd_HealthySQLite(t *testing.T) {
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()

	ctx, out := newTestContext(t, store)
	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed on healthy database: %v\n%s", err, out.String())
	}
	// missing backups only warn
	if !strings.Contains(out.String(), "Backups present: WARNING") {
		t.Errorf("expected backup warning, got %q", out.String())
	}
}

func TestDoctorCmd_MalformedData(t *testing.T) {
	mem := storage.NewMemoryStore()
	mem.Put(constants.KeyDreams, []byte(`[{"id":0,"name":""}]`))
	ctx, out := newTestContext(t, mem)

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail on malformed data")
	}
	if !strings.Contains(out.String(), "Stored data: FAIL") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestOpenStoreInitializesOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "constancia.json")
	ctx, _ := newTestContext(t, storage.NewJSONStore(path))
	if err := ctx.OpenStore(); err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if err := (&HabitAddCmd{Name: "Write"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, _ := newTestContext(t, storage.NewJSONStore(path))
	s, err := reopened.Session(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Habits.FindByName("Write"); !ok {
		t.Error("expected habit to survive a reopen")
	}
}
