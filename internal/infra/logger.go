package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract shared by every package.
type Logger = zerolog.Logger

// NewLogger builds the service logger. Development gets console output at
// debug level; anything else writes JSON at info. A valid LOG_LEVEL wins
// over both defaults.
func NewLogger(cfg *Config) Logger {
	appEnv, levelName := "production", ""
	if cfg != nil {
		appEnv, levelName = cfg.AppEnv, cfg.LogLevel
	}

	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelName))); err == nil && levelName != "" {
		level = parsed
	}

	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "mediagen").
		Logger()
}
