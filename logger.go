package ddevil

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ddevil-specific field helpers so log lines
// stay consistent across the CLI and the daemon.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger writing human-readable lines to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewJSONLogger creates a Logger writing JSON lines to w. The daemon uses
// this for its log file once detached.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithFile tags the logger with the sequence file being processed.
func (l *Logger) WithFile(path string) *Logger {
	return &Logger{Logger: l.Logger.With("file", path)}
}

// WithSeqID tags the logger with a sequence ID.
func (l *Logger) WithSeqID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("seq_id", id)}
}

// WithColour tags the logger with a colour.
func (l *Logger) WithColour(colour int) *Logger {
	return &Logger{Logger: l.Logger.With("colour", colour)}
}

// WithPid tags the logger with a process ID.
func (l *Logger) WithPid(pid int) *Logger {
	return &Logger{Logger: l.Logger.With("pid", pid)}
}
