package app

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/dory/config"
)

// NewLogger builds the process logger: human-readable in development,
// JSON lines in production.
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("server", "dory").Logger()
}
