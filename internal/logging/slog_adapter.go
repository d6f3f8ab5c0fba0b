// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler adapts the zerolog global logger to the slog.Handler
// interface. The supervision tree logs through slog, so this keeps
// supervisor events in the same stream as everything else.
type SlogHandler struct {
	attrs  []slog.Attr
	groups []string
}

// NewSlogLogger returns an *slog.Logger backed by the global zerolog
// logger.
func NewSlogLogger() *slog.Logger {
	return slog.New(&SlogHandler{})
}

// Enabled reports whether the given level would be emitted.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return slogToZerologLevel(level) >= Logger().GetLevel()
}

// Handle converts an slog.Record into a zerolog event.
func (h *SlogHandler) Handle(_ context.Context, rec slog.Record) error {
	l := Logger()
	ev := l.WithLevel(slogToZerologLevel(rec.Level))
	for _, a := range h.attrs {
		addAttr(ev, a.Key, a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		addAttr(ev, h.prefixed(a.Key), a.Value)
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

// WithAttrs returns a handler carrying the additional attributes. Keys
// are qualified with the open groups at attach time.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &SlogHandler{
		attrs:  make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
		groups: h.groups,
	}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.prefixed(a.Key), Value: a.Value})
	}
	return next
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := &SlogHandler{attrs: h.attrs}
	next.groups = append(append([]string{}, h.groups...), name)
	return next
}

func (h *SlogHandler) prefixed(key string) string {
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return key
}

func addAttr(ev *zerolog.Event, key string, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		ev.Str(key, v.String())
	case slog.KindInt64:
		ev.Int64(key, v.Int64())
	case slog.KindUint64:
		ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		ev.Float64(key, v.Float64())
	case slog.KindBool:
		ev.Bool(key, v.Bool())
	case slog.KindDuration:
		ev.Dur(key, v.Duration())
	case slog.KindTime:
		ev.Time(key, v.Time())
	case slog.KindGroup:
		for _, a := range v.Group() {
			addAttr(ev, key+"."+a.Key, a.Value)
		}
	default:
		ev.Interface(key, v.Any())
	}
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var _ slog.Handler = (*SlogHandler)(nil)
