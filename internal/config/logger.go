package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
	Output io.Writer
}

// InitLogger initializes the global logger writing to stderr, keeping stdout
// free for command output
func InitLogger(level, format string) {
	InitLoggerWithConfig(LoggerConfig{Level: level, Format: format, Output: os.Stderr})
}

// InitLoggerWithConfig initializes the global logger from cfg
func InitLoggerWithConfig(cfg LoggerConfig) {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Debug().
		Str("level", logLevel.String()).
		Str("format", cfg.Format).
		Msg("Logger initialized")
}

// NewLogger creates a new logger with a component name
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// NewBackendLogger creates a logger for a persistence or transport backend
func NewBackendLogger(component, backend string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("backend", backend).
		Logger()
}
