// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package logging provides the process-wide structured logger built on
// zerolog. Components derive child loggers via With() and attach a
// "component" field so log lines stay filterable per subsystem.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Config controls logger initialization.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn,
	// error, fatal, panic. Defaults to info.
	Level string `koanf:"level"`

	// Format selects "json" (default) or "console" output.
	Format string `koanf:"format"`

	// Caller annotates each line with the file:line of the call site.
	Caller bool `koanf:"caller"`

	// Output overrides the destination. Defaults to stderr.
	Output io.Writer `koanf:"-"`
}

var (
	mu     sync.RWMutex
	logger zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the global logger. Safe to call more than once; the
// last call wins. Components that already captured a child logger keep
// their old settings, so call Init before building the service tree.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}

	mu.Lock()
	logger = ctx.Logger()
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the global logger. Intended for tests.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// With returns a context for building a child logger.
func With() zerolog.Context {
	return Logger().With()
}

// Debug starts a debug-level event on the global logger.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info-level event on the global logger.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn-level event on the global logger.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error-level event on the global logger.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal-level event; the finished event calls os.Exit(1).
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// Err starts an error-level event if err is non-nil, info otherwise.
func Err(err error) *zerolog.Event { l := Logger(); return l.Err(err) }
