package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
)

// Logger wraps zerolog.Logger with RelayDesk-specific functionality.
//
// It exposes the key/value call style used across the codebase
// (logger.Info("msg", "key", value)) so packages can depend on a small
// interface instead of zerolog directly.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	zl zerolog.Logger
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output format (JSON for production, console for development)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return newWithWriter(cfg, version, output)
}

func newWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	if strings.ToLower(cfg.Format) == "text" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "relaydesk").
		Str("version", version).
		Logger()

	return &Logger{zl: zl}
}

// parseLevel converts a string log level to zerolog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs at debug level with alternating key/value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.zl.Debug().Fields(pairs(args)).Msg(msg)
}

// Info logs at info level with alternating key/value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.zl.Info().Fields(pairs(args)).Msg(msg)
}

// Warn logs at warn level with alternating key/value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.zl.Warn().Fields(pairs(args)).Msg(msg)
}

// Error logs at error level with alternating key/value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.zl.Error().Fields(pairs(args)).Msg(msg)
}

// With returns a new Logger with additional default attributes.
//
// Parameters:
//   - args: Key-value pairs to add as default attributes
//
// Returns:
//   - *Logger: New logger with added attributes
//
// Example:
//
//	apiLogger := logger.With("component", "api")
//	apiLogger.Info("listening") // Includes component=api
func (l *Logger) With(args ...any) *Logger {
	return &Logger{zl: l.zl.With().Fields(pairs(args)).Logger()}
}

// Zerolog exposes the underlying zerolog.Logger for libraries that take one.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// pairs normalises a key/value list for zerolog. A dangling value is kept
// under the "!BADKEY" key rather than dropped.
func pairs(args []any) []any {
	if len(args)%2 == 0 {
		return args
	}
	out := make([]any, 0, len(args)+1)
	out = append(out, args[:len(args)-1]...)
	return append(out, "!BADKEY", args[len(args)-1])
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger outputs to stdout in JSON format at info level.
// It should only be used during early startup before config is available.
//
// Returns:
//   - *Logger: Default logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
