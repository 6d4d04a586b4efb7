package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config describes logger runtime configuration. Format is "json" (default)
// or "console"; Pretty forces console output regardless of format.
type Config struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

// NewLogger builds the process-wide zerolog root logger. Components derive
// their own loggers from it via With().Str("component", ...).
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = timeFormat(cfg)

	builder := zerolog.New(writer(cfg)).
		Level(level(cfg.Level)).
		With().
		Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}
	return builder.Logger()
}

func timeFormat(cfg Config) string {
	if cfg.TimeFormat != "" {
		return cfg.TimeFormat
	}
	return time.RFC3339
}

// level parses the configured level, falling back to info so a typo in the
// config never silences the process.
func level(raw string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func writer(cfg Config) io.Writer {
	if cfg.PrettyPrint || strings.EqualFold(cfg.Format, "console") {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: timeFormat(cfg),
		}
	}
	return os.Stdout
}
