package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	Setup(os.Getenv("ENVIRONMENT"))
}

// Setup configures the global logger. Development gets a console writer and
// debug level, everything else gets JSON at info level.
func Setup(environment string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if environment == "" || environment == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
		return
	}

	log = zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().Timestamp().Str("env", environment).Logger()
}

// Get exposes the underlying zerolog logger for call sites that want fields.
func Get() *zerolog.Logger {
	return &log
}

func Info(format string, v ...interface{}) {
	log.Info().Str("caller", caller()).Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	log.Error().Str("caller", caller()).Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	log.Debug().Str("caller", caller()).Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	log.Warn().Str("caller", caller()).Msgf(format, v...)
}

// WithContext prefixes a message with the caller location and an arbitrary context value.
func WithContext(ctx interface{}, format string, v ...interface{}) string {
	contextStr := caller()
	if ctx != nil {
		contextStr = fmt.Sprintf("%v - %v", contextStr, ctx)
	}
	return fmt.Sprintf("[%s] %s", contextStr, fmt.Sprintf(format, v...))
}

// LogNegotiationError records a failed negotiation step without failing the caller.
func LogNegotiationError(conversationID, action string, err error) {
	Warn("Negotiation log error: action=%s, conversationID=%s, error=%v", action, conversationID, err)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		file = file[idx+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}
