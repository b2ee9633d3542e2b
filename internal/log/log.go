// Package log builds the structured logger the CLI and lock protocol
// share. Output goes to stderr so it never mixes with the wrapped
// command's stdout.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatText is the human-readable default for terminal and cron use.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per line for machine parsing.
	FormatJSON Format = "json"
)

// Field keys shared across the codebase so log lines stay greppable.
const (
	RunIDKey   = "run_id"
	LockKey    = "lock"
	GroupKey   = "lockgroup"
	CommandKey = "command"
)

// Config holds the logging configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error).
	// Default: warn, so a healthy cron run stays silent.
	Level string

	// Format sets the output encoding (text, json). Default: text.
	Format Format

	// Output is the writer for log output. Default: os.Stderr.
	Output io.Writer

	// AddSource adds source file and line information to records.
	AddSource bool
}

// DefaultConfig returns the quiet-by-default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: FormatText,
		Output: os.Stderr,
	}
}

// FromEnv builds a Config from the environment:
//   - RUNONE_DEBUG: true/1 enables debug level plus source locations
//   - RUNONE_LOG_LEVEL: debug, info, warn, error (wins over LOG_LEVEL)
//   - LOG_LEVEL: debug, info, warn, error
//   - RUNONE_LOG_FORMAT: text, json (wins over LOG_FORMAT)
//   - LOG_FORMAT: text, json
//   - LOG_SOURCE: 1 to record source file and line
func FromEnv() *Config {
	cfg := DefaultConfig()

	debug := os.Getenv("RUNONE_DEBUG")
	if debug == "true" || debug == "1" {
		cfg.Level = "debug"
		cfg.AddSource = true
	}

	if debug == "" {
		if level := os.Getenv("RUNONE_LOG_LEVEL"); level != "" {
			cfg.Level = strings.ToLower(level)
		} else if level := os.Getenv("LOG_LEVEL"); level != "" {
			cfg.Level = strings.ToLower(level)
		}
	}

	if format := os.Getenv("RUNONE_LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	} else if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}

	if os.Getenv("LOG_SOURCE") == "1" {
		cfg.AddSource = true
	}

	return cfg
}

// New creates a structured logger from the given configuration.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Error wraps an error as a uniformly keyed attribute.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
