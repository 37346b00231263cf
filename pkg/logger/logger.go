package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelDebug
	LevelTrace
)

type Logger struct {
	zl        zerolog.Logger
	out       io.Writer
	component string
	json      bool
	level     LogLevel
	isVerbose bool
}

type Option func(*Logger)

func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

// WithComponent tags every event with a component field.
func WithComponent(name string) Option {
	return func(l *Logger) {
		l.component = name
	}
}

// WithJSON switches from the human console format to one JSON object per line.
func WithJSON() Option {
	return func(l *Logger) {
		l.json = true
	}
}

func New(options ...Option) *Logger {
	l := &Logger{
		out:       os.Stderr,
		level:     LevelInfo,
		isVerbose: false,
	}

	for _, opt := range options {
		opt(l)
	}

	var w io.Writer = l.out
	if !l.json {
		w = zerolog.ConsoleWriter{
			Out:        l.out,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(l.out),
		}
	}

	ctx := zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp()
	if l.component != "" {
		ctx = ctx.Str("component", l.component)
	}
	l.zl = ctx.Logger()

	return l
}

func (l *Logger) SetVerbose(verbose bool) {
	l.isVerbose = verbose
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	if level >= LevelTrace {
		// zerolog drops trace events below the global level regardless of the logger's own level.
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.isVerbose || l.level >= LevelDebug {
		l.zl.Debug().Msgf(format, args...)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LevelTrace {
		l.zl.Trace().Msgf(format, args...)
	}
}

func (l *Logger) Error(err error, format string, args ...interface{}) {
	l.zl.Error().Err(err).Msgf(format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zl.Fatal().Msgf(format, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
