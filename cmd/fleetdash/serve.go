package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/web"
)

// serve serves the web dashboard until the context is done
func serve(ctx context.Context, app *app) error {
	// Pick up logins and logouts done by other processes sharing the token file
	if app.fileStore != nil {
		err := app.fileStore.Watch(ctx, func() {
			if _, err := app.session.Restore(ctx); err != nil {
				log.Warn().Err(err).Msg("could not reload the session from the token file")
				return
			}
			log.Debug().Bool("authenticated", app.session.Authenticated()).Msg("reloaded the session from the token file")
		})
		if err != nil {
			log.Warn().Err(err).Str("path", app.fileStore.Path()).Msg("could not watch the token file")
		}
	}

	// Start up the web dashboard
	log.Info().Str("address", app.cfg.ListenAddress).Msg("starting up the web dashboard...")
	service := &web.Service{
		Config:     app.cfg,
		Controller: app.controller,
		Metrics:    app.metrics,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- service.Startup()
	}()
	defer func() {
		log.Info().Msg("shutting down the web dashboard...")
		service.Shutdown()
	}()

	// Wait for an interrupt signal or a serving error
	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}
