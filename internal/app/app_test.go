package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	dbURL := "file:" + filepath.Join(t.TempDir(), "init.db")
	t.Setenv("DATABASE_URL", dbURL)
	t.Setenv("SYNC_INTERVAL_HOURS", "6")
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.DatabaseURL != dbURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, dbURL)
	}
	if cfg.SyncIntervalHours != 6 {
		t.Errorf("SyncIntervalHours = %d, want 6", cfg.SyncIntervalHours)
	}

	// グローバルロガーがJSON出力になっていること
	slog.Default().Info("init test")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithInvalidConfig_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "init.db"))
	t.Setenv("SYNC_INTERVAL_HOURS", "0")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for out-of-range SYNC_INTERVAL_HOURS, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}
