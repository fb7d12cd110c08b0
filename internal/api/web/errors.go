package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/client"
)

// writeClientError translates an error returned by the dashboard controller into an error response.
// Backend client errors (4xx) are passed through; everything else the backend answers with becomes 502.
func (service *Service) writeClientError(writer http.ResponseWriter, err error) {
	var apiErr *client.Error
	switch {
	case client.IsUnauthenticated(err):
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 499 {
			status = http.StatusBadGateway
		}
		service.writer.WriteErrors(writer, status, schema.ErrBackend(apiErr.Status, apiErr.Message))
	case errors.Is(err, context.Canceled):
		// The requesting client went away
	default:
		log.Warn().Err(err).Msg("could not reach the fleet backend")
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrBackendUnreachable)
	}
}
