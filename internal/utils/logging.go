package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	Level string // debug, info, warn, error
	File  string // optional path; rotated by lumberjack
	Debug bool
}

// NewLogger builds the application logger. Console output is colorised by
// tint; when a file is configured the same records are also written there
// without colour.
func NewLogger(opts LogOptions) *slog.Logger {
	level := ParseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	noColor := false
	if opts.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		noColor = true
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
		AddSource:  opts.Debug,
	}))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// DiscardLogger is used by tests and by commands that want silence.
func DiscardLogger() *slog.Logger {
	return slog.New(tint.NewHandler(io.Discard, nil))
}
