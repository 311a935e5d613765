// Package logging provides the structured logger used across the proof
// driver, mirroring gnark/logger: a single process-wide zerolog.Logger,
// contextualized per call with .With()....Logger().
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// Logger returns the shared base logger. Safe for concurrent use.
func Logger() zerolog.Logger {
	once.Do(func() {
		base = zerolog.New(os.Stderr).With().Timestamp().Logger()
	})
	return base
}

// SetOutput redirects the base logger, used by tests and by hosts that want
// structured logs routed elsewhere.
func SetOutput(w zerolog.ConsoleWriter) {
	once.Do(func() {})
	base = zerolog.New(w).With().Timestamp().Logger()
}
