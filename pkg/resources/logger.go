package resources

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger and returns ctx carrying it.
func SetupLogger(ctx context.Context, cfg *Config) context.Context {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.App.Env == "local" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	log.Logger = logger.With().Timestamp().
		Str("service", cfg.Name).Str("version", cfg.Version).Str("env", cfg.App.Env).
		Logger()
	zerolog.DefaultContextLogger = &log.Logger

	return log.Logger.WithContext(ctx)
}
