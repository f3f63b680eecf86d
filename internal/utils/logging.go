// Package utils holds process setup shared by the binaries: console logging
// and .env files.
package utils

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger returns a tint logger on f. Colours are only used on a terminal
// and timestamps are dropped under systemd, which adds its own.
func NewLogger(f *os.File, level *slog.LevelVar) *slog.Logger {
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(f), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(f.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			if isEmpty(a.Value.Any()) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

// SetLevel parses one of debug, info, warn or error into level.
func SetLevel(level *slog.LevelVar, s string) error {
	switch s {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", s)
	}
	return nil
}
