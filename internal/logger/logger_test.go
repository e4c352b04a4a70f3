package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	err := Init(Config{
		Debug:     false,
		ConfigDir: configDir,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("default level = %v, want %v", Logger.GetLevel(), log.WarnLevel)
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}

func TestInitDebugMode(t *testing.T) {
	err := Init(Config{
		Debug:     true,
		ConfigDir: t.TempDir(),
		Level:     "error",
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}

	// Debug flag wins over the configured level
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want %v", Logger.GetLevel(), log.DebugLevel)
	}
}

func TestInitLevelFromConfig(t *testing.T) {
	if err := Init(Config{ConfigDir: t.TempDir(), Level: "info"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Logger.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want %v", Logger.GetLevel(), log.InfoLevel)
	}

	// Unknown levels fall back to warn
	if err := Init(Config{ConfigDir: t.TempDir(), Level: "chatty"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("level = %v, want %v", Logger.GetLevel(), log.WarnLevel)
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}
