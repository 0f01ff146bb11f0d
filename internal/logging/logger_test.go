package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesRunScopedLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("loaded 3 papers")
	logger.Warn("taxonomy drift", "domain", "climate")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	for _, line := range lines {
		if !strings.Contains(line, "run_id="+logger.RunID()) {
			t.Fatalf("line %q missing run id", line)
		}
	}
	if !strings.Contains(lines[0], `msg="loaded 3 papers"`) {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "domain=climate") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestNilAndDiscardAreSafe(t *testing.T) {
	var nilLogger *Logger
	if nilLogger.Slog() == nil {
		t.Fatal("Slog must never return nil")
	}
	if err := nilLogger.Close(); err != nil {
		t.Fatalf("close nil: %v", err)
	}

	discard := Discard()
	discard.Info("ignored")
	if discard.RunID() == "" {
		t.Fatal("discard logger should still carry a run id")
	}
	if err := discard.Close(); err != nil {
		t.Fatalf("close discard: %v", err)
	}
}
