package logutil

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. DEV gets human-readable
// console output; everything else stays structured JSON.
func Setup(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// Security returns a logger tagged for the security audit trail: failed
// logins, lockouts, origin rejections, injection attempts.
func Security() zerolog.Logger {
	return log.With().Str("log", "security").Logger()
}
