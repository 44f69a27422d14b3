package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerOptions selects level, output format and an optional log file.
type LoggerOptions struct {
	Level  string
	Format string // "console" or "json"
	File   string
	Out    io.Writer
}

// Logger provides structured, leveled logging throughout the application.
// It is passed explicitly to every component; there is no package-level logger.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger creates a console Logger at info level writing to stderr.
func NewLogger() *Logger {
	l, _ := NewLoggerWith(LoggerOptions{Level: "info", Format: "console", Out: os.Stderr})
	return l
}

// NewLoggerWith builds a Logger from opts. When File is set, every line is
// also appended to that file in JSON.
func NewLoggerWith(opts LoggerOptions) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	l := &Logger{}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logger: open %q: %w", opts.File, err)
		}
		l.file = f
		out = zerolog.MultiLevelWriter(out, f)
	}

	l.zl = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return l, nil
}

// NewNopLogger discards everything. Handy in tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying an extra key/value on every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
