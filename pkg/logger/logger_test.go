package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestInit_JSONLevelFiltering(t *testing.T) {
	defer func() { _ = Close() }()

	var buf bytes.Buffer
	if err := Init(LogConfig{Level: "info", Format: "json"}, &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	l := For("compaction")
	l.Debug().Msg("hidden")
	l.Info().Str("strategy", "smart").Msg("compressed")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(entries), buf.String())
	}
	e := entries[0]
	if e["message"] != "compressed" || e["strategy"] != "smart" || e["component"] != "compaction" {
		t.Errorf("unexpected entry: %v", e)
	}
}

func TestInit_Console(t *testing.T) {
	defer func() { _ = Close() }()

	var buf bytes.Buffer
	if err := Init(LogConfig{Level: "debug", Format: "console"}, &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	l := For("cli")
	l.Debug().Msg("console line")

	out := buf.String()
	if !strings.Contains(out, "console line") {
		t.Errorf("console output missing message: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("console output should not be JSON: %q", out)
	}
}

func TestInit_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctxwin.log")
	defer func() { _ = Close() }()

	var console bytes.Buffer
	if err := Init(LogConfig{Level: "debug", Format: "console", File: logPath}, &console); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	l := For("watch")
	l.Info().Str("file", "main.go").Msg("file message")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("log file should hold JSON, got %q: %v", content, err)
	}
	if entry["message"] != "file message" || entry["file"] != "main.go" {
		t.Errorf("unexpected file entry: %v", entry)
	}
	if !strings.Contains(console.String(), "file message") {
		t.Errorf("console missing message: %q", console.String())
	}
}

func TestInit_InvalidFile(t *testing.T) {
	defer func() { _ = Close() }()

	var buf bytes.Buffer
	err := Init(LogConfig{Level: "info", Format: "json", File: "/nonexistent/directory/ctxwin.log"}, &buf)
	if err == nil {
		t.Error("expected error for invalid file path")
	}

	l := For("config")
	l.Info().Msg("still logging")
	if !strings.Contains(buf.String(), "still logging") {
		t.Errorf("console writer not installed after file error: %q", buf.String())
	}
}

func TestClose_DetachesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctxwin.log")
	defer func() { _ = Close() }()

	var console bytes.Buffer
	if err := Init(LogConfig{Level: "warn", Format: "json", File: logPath}, &console); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	l := For("cli")
	l.Warn().Msg("before close")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	after := For("cli")
	after.Info().Msg("filtered")
	after.Warn().Msg("after close")

	entries := decodeLines(t, &console)
	if len(entries) != 2 || entries[1]["message"] != "after close" {
		t.Fatalf("console should keep logging at warn after Close, got %q", console.String())
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "after close") {
		t.Errorf("closed log file received an entry: %q", content)
	}
}
