package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an interface for logging
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

type contextKey string

const turnIDKey contextKey = "turn_id"

// WithTurnID adds a turn ID to the context so every log event of the turn carries it
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey, turnID)
}

// TurnID retrieves the turn ID from the context
func TurnID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(turnIDKey).(string)
	return id, ok && id != ""
}

// ZeroLogger implements Logger using zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

// Option configures a ZeroLogger
type Option func(*ZeroLogger)

// New creates a new ZeroLogger. Events are written to stderr so they stay
// out of the chat transcript on stdout.
func New(options ...Option) *ZeroLogger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	l := &ZeroLogger{
		logger: zerolog.New(output).With().Timestamp().Logger().Level(zerolog.InfoLevel),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// WithOutput redirects log events to w
func WithOutput(w io.Writer) Option {
	return func(l *ZeroLogger) {
		l.logger = l.logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true})
	}
}

// WithLevel sets the minimum level that is emitted
func WithLevel(level string) Option {
	return func(l *ZeroLogger) {
		l.logger = l.logger.Level(ParseLevel(level))
	}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Info logs an info message
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Error(), msg, fields)
}

// Debug logs a debug message
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Debug(), msg, fields)
}

func (l *ZeroLogger) write(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	// nil when the level is filtered out
	if event == nil {
		return
	}

	if ctx != nil {
		if turnID, ok := TurnID(ctx); ok {
			event = event.Str("turn_id", turnID)
		}
	}

	for k, v := range fields {
		event = event.Interface(k, v)
	}

	event.Msg(msg)
}

// Nop returns a logger that discards everything
func Nop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}
