package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestPrintfAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	l := New(base, "badger")

	l.Debugf("hidden %d", 1)
	l.Warningf("value log %s\n", "rotated")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["msg"] != "value log rotated" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "WARN" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["component"] != "badger" {
		t.Fatalf("unexpected component: %v", record["component"])
	}
}

func TestNewWithNilBase(t *testing.T) {
	t.Parallel()

	if New(nil, "x") == nil {
		t.Fatalf("expected adapter")
	}
}
