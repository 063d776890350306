// Package log is the structured logging layer of the training pipeline.
//
// Loggers are obtained by component name and carry key/value context:
//
//	logger := log.GetLoggerWithName("model_selection").With(
//	    log.FamilyKey, "poisson_glm",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Search finished", log.CandidatesKey, 4, log.ScoreKey, 0.2457)
//
// The Logger interface mirrors log/slog so call sites read the same with any
// backend. The production backend is zerolog (zerolog.go); tests install a
// TestLoggerProvider (testing.go). Attribute keys live in attributes.go.
package log

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Logger is a leveled key/value logger.
//
// Fields are alternating keys and values. Error may take an error as its
// first field; it is logged under "error" with its stack trace.
//
//	logger.Error("Stage failed", err, log.StageKey, "Refit")
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every entry.
	With(fields ...any) Logger

	// Enabled reports whether entries at level are emitted. Use it to skip
	// building expensive fields, e.g. per-fold score tables.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a log severity. Values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string ("debug", "info", "warn",
// "error") into a Level. The empty string is info.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf("invalid log level: %q", level)
	}
}

// LoggerProvider creates loggers. SetProvider installs the global one.
type LoggerProvider interface {
	GetLogger() Logger
	// GetLoggerWithName tags the logger with a component name.
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
