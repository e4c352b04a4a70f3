package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/constancia/internal/constants"
)

// clearEnv unsets every override for the duration of the test, including
// ones a .env file might set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		constants.EnvTimezone, constants.EnvLogLevel, constants.EnvDatabase,
		constants.EnvFocusMinutes, constants.EnvBreakMinutes,
	} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.Timer != def.Timer || cfg.Database != BackendSQLite || cfg.Timezone != "Local" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.Timer.FocusMinutes != 25 || cfg.Timer.BreakMinutes != 5 {
		t.Errorf("unexpected default durations: %+v", cfg.Timer)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yamlData := `timezone: America/Sao_Paulo
log_level: info
timer:
  focus_minutes: 50
backups:
  auto: false
`
	if err := os.WriteFile(filepath.Join(dir, constants.ConfigFileName), []byte(yamlData), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timezone != "America/Sao_Paulo" || cfg.LogLevel != "info" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Timer.FocusMinutes != 50 || cfg.Timer.BreakMinutes != 5 {
		t.Errorf("partial timer block should keep the default break: %+v", cfg.Timer)
	}
	if cfg.Backups.Auto {
		t.Error("expected auto backups disabled")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("timer:\n  break_minutes: 10\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(constants.EnvBreakMinutes, "15")
	t.Setenv(constants.EnvDatabase, "json")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timer.BreakMinutes != 15 || cfg.Database != BackendJSON {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := constants.EnvFocusMinutes + "=45\n" + constants.EnvTimezone + "=UTC\n"
	if err := os.WriteFile(filepath.Join(dir, constants.EnvFileName), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	// A variable already set wins over .env
	t.Setenv(constants.EnvTimezone, "Europe/Lisbon")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timer.FocusMinutes != 45 {
		t.Errorf("expected focus from .env, got %d", cfg.Timer.FocusMinutes)
	}
	if cfg.Timezone != "Europe/Lisbon" {
		t.Errorf("existing env should win, got %s", cfg.Timezone)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "bad yaml", yaml: "timer: [", want: "failed to parse config"},
		{name: "bad timezone", yaml: "timezone: Mars/Olympus", want: "invalid timezone"},
		{name: "bad backend", yaml: "database: mongo", want: "invalid database"},
		{name: "zero focus", yaml: "timer:\n  focus_minutes: 0\n", want: "must be positive"},
		{name: "bad env number", env: map[string]string{constants.EnvFocusMinutes: "lots"}, want: "invalid " + constants.EnvFocusMinutes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if tt.yaml != "" {
				if err := os.WriteFile(Path(dir), []byte(tt.yaml), 0600); err != nil {
					t.Fatal(err)
				}
			}
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := DefaultConfig()
	cfg.Timer.FocusMinutes = 40
	cfg.Database = BackendPostgres

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Timer.FocusMinutes != 40 || got.Database != BackendPostgres {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"~/.config/constancia/constancia.db": filepath.Join(home, ".config/constancia/constancia.db"),
		"~":                                  home,
		"/tmp/x.db":                          "/tmp/x.db",
		"relative/~/x":                       "relative/~/x",
	}
	for in, want := range tests {
		got, err := ExpandPath(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
