// Package logging provides a runtime.Logger for binaries running outside Nakama.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Options select the handler and level.
type Options struct {
	JSON    bool
	Verbose bool
}

// Logger adapts slog to the printf-style runtime.Logger interface so engine code
// logs the same way inside and outside the Nakama process.
type Logger struct {
	l      *slog.Logger
	fields map[string]interface{}
}

// New builds a Logger writing to w.
func New(w io.Writer, opts Options) *Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return &Logger{l: slog.New(h), fields: map[string]interface{}{}}
}

func (g *Logger) log(level slog.Level, format string, v ...interface{}) {
	if !g.l.Enabled(context.Background(), level) {
		return
	}
	g.l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func (g *Logger) Debug(format string, v ...interface{}) { g.log(slog.LevelDebug, format, v...) }
func (g *Logger) Info(format string, v ...interface{})  { g.log(slog.LevelInfo, format, v...) }
func (g *Logger) Warn(format string, v ...interface{})  { g.log(slog.LevelWarn, format, v...) }
func (g *Logger) Error(format string, v ...interface{}) { g.log(slog.LevelError, format, v...) }

// WithField returns a child logger carrying key.
func (g *Logger) WithField(key string, v interface{}) runtime.Logger {
	return g.WithFields(map[string]interface{}{key: v})
}

// WithFields returns a child logger carrying every entry of fields.
func (g *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(g.fields)+len(fields))
	for k, v := range g.fields {
		merged[k] = v
	}
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		merged[k] = v
		args = append(args, k, v)
	}
	return &Logger{l: g.l.With(args...), fields: merged}
}

// Fields returns a copy of the attached fields.
func (g *Logger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(g.fields))
	for k, v := range g.fields {
		out[k] = v
	}
	return out
}

var _ runtime.Logger = (*Logger)(nil)
