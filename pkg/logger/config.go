package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config describes log output. Parsed from the environment with caarlos0/env.
type Config struct {
	Level             string `env:"LEVEL" envDefault:"info"`
	Format            string `env:"FORMAT" envDefault:"json"`
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// SentryLevel is the lowest level forwarded to Sentry as a log entry.
	// Errors always create Sentry issues.
	SentryLevel string `env:"SENTRY_LEVEL" envDefault:"warn"`
}

// ParseLevel maps debug, info, warn and error to slog levels.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}
