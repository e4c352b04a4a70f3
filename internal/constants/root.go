package constants

import "time"

const (
	AppName            = "constancia"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/constancia/constancia.db"
	Version            = "v0.3.0"

	// DateFormat is the date-key format used for completions (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Storage keys
	KeyHabits   = "constancia_habits"
	KeyDreams   = "constancia_dreams"
	KeyPomodoro = "constancia_pomodoro"
	KeyVerse    = "constancia_verse"
	KeySessions = "constancia_sessions"

	// Timer defaults
	DefaultFocusSeconds = 25 * 60
	DefaultBreakSeconds = 5 * 60
	TickInterval        = time.Second
	MaxSessionHistory   = 500

	// Dream board rotation interval used by the TUI banner
	DreamRotationInterval = 5 * time.Second

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "constancia-"
	BackupFileSuffix = ".db"

	// Timer lockfile
	TimerLockfileName = "constancia-timer.lock"

	// Environment
	EnvDBConnection = "CONSTANCIA_DB_CONNECTION"
	EnvTimezone     = "CONSTANCIA_TIMEZONE"
	EnvDebug        = "CONSTANCIA_DEBUG"
	EnvLogLevel     = "CONSTANCIA_LOG_LEVEL"
	EnvDatabase     = "CONSTANCIA_DATABASE"
	EnvFocusMinutes = "CONSTANCIA_FOCUS_MINUTES"
	EnvBreakMinutes = "CONSTANCIA_BREAK_MINUTES"

	// Settings files, relative to the config directory
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
)

// HabitColors is the fixed palette habits are assigned from, round-robin.
var HabitColors = []string{"#34d399", "#f59e0b", "#60a5fa", "#a78bfa", "#f472b6", "#ef4444"}
