package dashboard

import (
	"context"
	"time"

	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/poll"
)

// Names of the polled resources
const (
	ResourceStatus       = "status"
	ResourceEmulators    = "emulators"
	ResourceWorkstations = "workstations"
	ResourceOperations   = "operations"
)

// List windows requested by the workstation and operation views
const (
	WorkstationsLimit = 100
	OperationsLimit   = 50
)

// Intervals configures how often each resource is polled while it is subscribed to
type Intervals struct {
	Status       time.Duration
	Emulators    time.Duration
	Workstations time.Duration
	Operations   time.Duration
}

// DefaultIntervals returns the poll intervals used if nothing else is configured
func DefaultIntervals() Intervals {
	return Intervals{
		Status:       5 * time.Second,
		Emulators:    3 * time.Second,
		Workstations: 10 * time.Second,
		Operations:   3 * time.Second,
	}
}

// Resources bundles the polled backend resources the dashboard views are built from
type Resources struct {
	Status       *poll.Resource[*fleet.SystemStatus]
	Emulators    *poll.Resource[[]fleet.Emulator]
	Workstations *poll.Resource[[]fleet.Workstation]
	Operations   *poll.Resource[[]fleet.Operation]
}

// NewResources registers the dashboard resources backed by the given client to the poll manager
func NewResources(manager *poll.Manager, api *client.Client, intervals Intervals) *Resources {
	return &Resources{
		Status:    poll.Register(manager, ResourceStatus, intervals.Status, api.GetSystemStatus),
		Emulators: poll.Register(manager, ResourceEmulators, intervals.Emulators, api.GetEmulators),
		Workstations: poll.Register(manager, ResourceWorkstations, intervals.Workstations, func(ctx context.Context) ([]fleet.Workstation, error) {
			return api.GetWorkstations(ctx, &client.ListOptions{Limit: WorkstationsLimit})
		}),
		Operations: poll.Register(manager, ResourceOperations, intervals.Operations, func(ctx context.Context) ([]fleet.Operation, error) {
			return api.GetOperations(ctx, &client.ListOptions{Limit: OperationsLimit})
		}),
	}
}
