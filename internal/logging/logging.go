// Package logging sets up the process-wide structured logger. It mirrors
// the style internal/persistence/databases uses directly against
// github.com/rs/zerolog/log: stage-scoped events with doc_id/stage fields
// rather than free-form strings.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger at the given level ("debug",
// "info", "warn", "error"). Unknown levels fall back to info.
func Init(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Stage returns a logger pre-populated with the stage name, for the
// pipeline components (C1..C14) to attach doc_id/query fields to.
func Stage(name string) zerolog.Logger {
	return log.With().Str("stage", name).Logger()
}
