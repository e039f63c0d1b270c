// Package log provides the structured logger used across runchecks.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is the leveled, key-value logger used by every package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a Logger writing slog text records at level or above to out.
func NewSlogLogger(level slog.Level, out io.Writer) *SlogLogger {
	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &SlogLogger{logger: slog.New(slog.DiscardHandler)}
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}
