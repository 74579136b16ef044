package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"JournalSync/internal/config"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":    slog.LevelError,
		" WARN ":   slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"info":     slog.LevelInfo,
		"debug":    slog.LevelDebug,
		"anything": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info("dropped")
	logger.Warn("kept", "entry", "e1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "kept" || record["entry"] != "e1" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewFromConfigWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journalsync.log")
	logger, closer := NewFromConfig(config.LoggingConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	logger.Info("sync done", "synced", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "msg=\"sync done\" synced=3") {
		t.Fatalf("unexpected log file content: %q", raw)
	}
}
