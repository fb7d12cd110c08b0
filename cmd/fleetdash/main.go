package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kingpin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/config"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})

	commandLine := newCLI()
	command := kingpin.MustParse(commandLine.application.Parse(os.Args[1:]))

	// Load the application configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *commandLine.baseURL != "" {
		cfg.APIBaseURL = strings.TrimRight(*commandLine.baseURL, "/")
	}
	if *commandLine.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", redacted(cfg))).Msg("loaded configuration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not set up fleetdash")
	}
	defer app.Close()

	if err := commandLine.run(ctx, app, command); err != nil {
		app.Close()
		log.Fatal().Msg(errorMessage(err))
	}
}

// redacted returns a copy of the configuration that is safe to log
func redacted(cfg *config.Config) config.Config {
	copied := *cfg
	if copied.PostgresDSN != "" {
		copied.PostgresDSN = "<redacted>"
	}
	return copied
}
