package client

import (
	"context"

	"github.com/skybi/fleetdash/internal/fleet"
)

// GetSystemStatus retrieves the aggregated fleet status
func (client *Client) GetSystemStatus(ctx context.Context) (*fleet.SystemStatus, error) {
	status := new(fleet.SystemStatus)
	if err := client.Request(ctx, "/api/status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

// GetHealth retrieves the backend health report
func (client *Client) GetHealth(ctx context.Context) (*fleet.Health, error) {
	health := new(fleet.Health)
	if err := client.Request(ctx, "/api/health", nil, health); err != nil {
		return nil, err
	}
	return health, nil
}
