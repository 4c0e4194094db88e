package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level controls how verbose a Logger is.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Format selects the log output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to stderr
}

// Logger is a thin wrapper around zerolog that keeps the printf-style
// interface used throughout the codebase.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(c Config) *Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	if c.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	zl := zerolog.New(out).Level(zerologLevel(c.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewNopLogger returns a logger that discards everything it is given.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent returns a copy of the logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
