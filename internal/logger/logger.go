// Package logger builds the process-wide structured logger. Records are written
// as one JSON object per line with the timestamp under "ts", rendered in the
// configured location.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New returns a JSON logger writing to w. An unknown level falls back to info
// and a nil location to UTC.
func New(w io.Writer, level string, loc *time.Location) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return slog.New(h)
}

// Setup builds a logger on stderr and installs it as the slog default.
func Setup(level, timezone string) (*slog.Logger, *time.Location) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	l := New(os.Stderr, level, loc)
	slog.SetDefault(l)
	if err != nil {
		l.Warn("unknown timezone, using UTC", "tz", timezone, "error", err)
	}
	return l, loc
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
