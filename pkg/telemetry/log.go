package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger that packages such as
// browserpool and scrape log through via github.com/rs/zerolog/log. The
// worker entrypoint does not call it: it builds its own logger and passes
// it to jobrunner.Runner as Runner.Log.
func InitLogger(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var writer = os.Stderr
	if pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
		return
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

// JobLogger returns a logger pre-tagged with a job's identity, used by the
// job runner and job queue worker loop so every line for one job can be
// grepped together.
func JobLogger(jobID, userID string) zerolog.Logger {
	return log.With().
		Str("job_id", jobID).
		Str("user_id", userID).
		Logger()
}

// CityLogger tags a job logger with the city currently being scraped.
func CityLogger(base zerolog.Logger, country, state, city string) zerolog.Logger {
	return base.With().
		Str("country", country).
		Str("state", state).
		Str("city", city).
		Logger()
}
