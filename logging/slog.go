// Package logging adapts the standard library's log/slog to the schema.Logger
// contract every subsystem accepts, grounded on
// Angelos-Zaimis-go-loadbalancer's pkg/logger (environment-aware JSON/text
// handler selection). The core library depends only on schema.Logger; this
// adapter is what cmd/dcbdemo and any other caller wires in.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Slog wraps a *slog.Logger to satisfy schema.Logger.
type Slog struct {
	l *slog.Logger
}

// NewSlog wraps an existing *slog.Logger.
func NewSlog(l *slog.Logger) *Slog {
	return &Slog{l: l}
}

// New builds a *slog.Logger the way Angelos-Zaimis's pkg/logger.New does:
// text handler outside "prod", JSON handler in "prod", level parsed from a
// string.
func New(level, environment string) *Slog {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(environment, "prod") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Slog{l: slog.New(handler).With(slog.String("environment", environment))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *Slog) Debug(msg string, kv ...any) { s.l.Debug(msg, kv...) }
func (s *Slog) Info(msg string, kv ...any)  { s.l.Info(msg, kv...) }
func (s *Slog) Warn(msg string, kv ...any)  { s.l.Warn(msg, kv...) }
func (s *Slog) Error(msg string, kv ...any) { s.l.Error(msg, kv...) }
