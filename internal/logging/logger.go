// Package logging provides the application log: one JSON object per record,
// appended to a size-rotated file, with errors mirrored to stderr.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidLevel is returned by Log for levels outside debug/info/error.
var ErrInvalidLevel = errors.New("invalid log level")

const (
	// maxSizeMB is the rotation threshold for the log file.
	maxSizeMB = 5
	// maxBackups is how many rotated files are kept.
	maxBackups = 3
)

// recordZone is the fixed zone log timestamps are rendered in.
var recordZone = loadRecordZone()

func loadRecordZone() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Logger writes structured JSON log lines. Levels are restricted to
// debug, info and error; anything else is rejected.
type Logger struct {
	slog   *slog.Logger
	closer io.Closer
}

// New creates a logger writing JSON records to path, rotating at 5MB and
// keeping 3 backups. Errors are additionally rendered as text on stderr.
func New(path string, level slog.Level) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameAttrs,
	})
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	return &Logger{
		slog:   slog.New(slogmulti.Fanout(fileHandler, stderrHandler)),
		closer: rotator,
	}
}

// NewWithWriter creates a logger writing JSON records to w. Used in tests.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameAttrs,
	})
	return &Logger{slog: slog.New(handler)}
}

// renameAttrs maps slog's built-in keys onto the log file's record shape:
// date (fixed zone, millisecond precision), log_level, msg.
func renameAttrs(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "date"
		// Go layouts only render fractional seconds after a dot, so format
		// with ".000" and swap the separator to the colon the record uses.
		ts := a.Value.Time().In(recordZone).Format("2006-01-02 15:04:05.000")
		a.Value = slog.StringValue(strings.Replace(ts, ".", ":", 1))
	case slog.LevelKey:
		a.Key = "log_level"
		a.Value = slog.StringValue(a.Value.Any().(slog.Level).String())
	}
	return a
}

// Log appends one record at the given level. Valid levels are "debug",
// "info" and "error" (case-insensitive); any other level returns
// ErrInvalidLevel without writing anything. data may be nil and is
// serialized as null.
func (l *Logger) Log(level, message string, data map[string]any) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}

	l.slog.Log(context.Background(), lvl, message, slog.Any("data", data))
	return nil
}

// Debug logs at debug level.
func (l *Logger) Debug(message string, data map[string]any) {
	l.slog.Log(context.Background(), slog.LevelDebug, message, slog.Any("data", data))
}

// Info logs at info level.
func (l *Logger) Info(message string, data map[string]any) {
	l.slog.Log(context.Background(), slog.LevelInfo, message, slog.Any("data", data))
}

// Error logs at error level.
func (l *Logger) Error(message string, data map[string]any) {
	l.slog.Log(context.Background(), slog.LevelError, message, slog.Any("data", data))
}

// Close releases the underlying log file.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
