// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.

// Package log wraps log/slog with the nil-safe helpers the buffer engine
// uses to report diagnostics (an EstimatorDesync swallowed by a push, a
// reset) without ever requiring a caller to supply a logger.
package log

import (
	"context"
	"log/slog"
	"time"
)

type (
	// Logger is a wrapper around an *slog.Logger with nil checking: the
	// zero Logger silently discards everything, so buffers can hold one
	// by value without a nil-pointer special case at every call site.
	Logger struct{ logger *slog.Logger }

	// Attrs is implemented by error types that expose extra slog
	// attributes, letting Err log them uniformly regardless of kind.
	Attrs interface {
		Attrs() []slog.Attr
	}
)

// Wrap adapts an *slog.Logger, which may be nil, into a Logger.
func Wrap(logger *slog.Logger) Logger {
	return Logger{logger}
}

// Log records one structured log line at level, doing nothing if the
// wrapped logger is nil or the level is disabled.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if l.logger == nil || !l.logger.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = l.logger.Handler().Handle(ctx, r)
}

// Err logs err at LevelWarn, pulling in its structured Attrs if it
// implements Attrs.
func (l *Logger) Err(ctx context.Context, err error) {
	if a, ok := err.(Attrs); ok {
		l.Log(ctx, slog.LevelWarn, err.Error(), a.Attrs()...)
		return
	}
	l.Log(ctx, slog.LevelWarn, err.Error())
}

// Info logs msg at LevelInfo.
func (l *Logger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.Log(ctx, slog.LevelInfo, msg, attrs...)
}
