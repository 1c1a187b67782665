// Package logging is a small slog-backed logger with subsystem tags.
//
// Call sites pass a subsystem name and a printf-style message:
//
//	logging.Info("Auth", "refreshed token for athlete %d", id)
//	logging.Error("Store", err, "saving credential")
//
// Token values must never be passed to these functions.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is the minimum level a message needs to be written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// Init replaces the package logger. Output goes to w as slog text records.
func Init(level Level, w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.slogLevel()}))

	mu.Lock()
	logger = l
	mu.Unlock()
}

func logInternal(level Level, subsystem string, err error, format string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	ctx := context.Background()
	if !l.Enabled(ctx, level.slogLevel()) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(ctx, level.slogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem, format string, args ...any) {
	logInternal(LevelDebug, subsystem, nil, format, args...)
}

// Info logs an informational message.
func Info(subsystem, format string, args ...any) {
	logInternal(LevelInfo, subsystem, nil, format, args...)
}

// Warn logs a warning.
func Warn(subsystem, format string, args ...any) {
	logInternal(LevelWarn, subsystem, nil, format, args...)
}

// Error logs a failure together with its error.
func Error(subsystem string, err error, format string, args ...any) {
	logInternal(LevelError, subsystem, err, format, args...)
}
