package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileName is the diagnostics log inside the catalog logs directory.
const FileName = "catalog.log"

// Logger appends structured lines to <logs>/catalog.log so a failed run can
// be inspected after the terminal output is gone. Every line carries the
// run_id of the process that wrote it.
type Logger struct {
	*slog.Logger

	file  *os.File
	runID string
}

// New creates (or reuses) the log file inside logDir.
func New(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := newLogger(f)
	l.file = f
	return l, nil
}

// Discard returns a logger that drops everything. Useful in tests and when
// the logs directory cannot be created.
func Discard() *Logger {
	return newLogger(io.Discard)
}

func newLogger(w io.Writer) *Logger {
	runID := uuid.NewString()
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{
		Logger: slog.New(handler).With("run_id", runID),
		runID:  runID,
	}
}

// RunID identifies the current process in log lines and the journal.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Slog returns the underlying structured logger, never nil.
func (l *Logger) Slog() *slog.Logger {
	if l == nil || l.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.Logger
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

