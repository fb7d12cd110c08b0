package dashboard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/hashmap"
	"github.com/skybi/fleetdash/internal/poll"
)

// Emulator actions tracked while their request is in flight
const (
	ActionStarting = "starting"
	ActionStopping = "stopping"
	ActionDeleting = "deleting"
	ActionCreating = "creating"
)

// Controller executes the dashboard actions and builds its views.
// It is the place deciding what happens if the backend reports the session as expired: every error matching
// client.ErrUnauthenticated invokes the login navigation callback.
type Controller struct {
	api       *client.Client
	resources *Resources
	pending   *hashmap.NormalMap[string, string]
	toLogin   func()
}

// NewController creates a new dashboard controller.
// toLogin is invoked whenever the user has to log in again; it may be nil.
func NewController(api *client.Client, resources *Resources, toLogin func()) *Controller {
	if toLogin == nil {
		toLogin = func() {}
	}
	return &Controller{
		api:       api,
		resources: resources,
		pending:   hashmap.NewNormal[string, string](),
		toLogin:   toLogin,
	}
}

// Resources returns the polled resources the controller reads from
func (controller *Controller) Resources() *Resources {
	return controller.resources
}

// Authenticated reports whether the session currently holds a token
func (controller *Controller) Authenticated() bool {
	return controller.api.Session().Authenticated()
}

// Check invokes the login navigation callback if err was caused by an expired session and returns err unchanged
func (controller *Controller) Check(err error) error {
	if client.IsUnauthenticated(err) {
		log.Info().Msg("session expired; login required")
		controller.toLogin()
	}
	return err
}

// Login logs the user in
func (controller *Controller) Login(ctx context.Context, username, password string) (*fleet.LoginResponse, error) {
	resp, err := controller.api.Login(ctx, username, password)
	if err != nil {
		log.Debug().Err(err).Str("username", username).Msg("login failed")
		return nil, err
	}
	log.Info().Str("username", username).Msg("logged in")
	return resp, nil
}

// Logout ends the session and navigates to the login view
func (controller *Controller) Logout(ctx context.Context) error {
	err := controller.api.Logout(ctx)
	controller.toLogin()
	return err
}

// Summary returns the system status overview
func (controller *Controller) Summary(ctx context.Context) (Summary, error) {
	status, err := controller.resources.Status.Get(ctx)
	if err != nil {
		return Summary{}, controller.Check(err)
	}
	return NewSummary(status), nil
}

// Emulators returns the emulator list including the actions in progress
func (controller *Controller) Emulators(ctx context.Context) ([]EmulatorRow, error) {
	emulators, err := controller.resources.Emulators.Get(ctx)
	if err != nil {
		return nil, controller.Check(err)
	}
	return NewEmulatorRows(emulators, controller.PendingAction), nil
}

// Workstations returns the workstation list
func (controller *Controller) Workstations(ctx context.Context) ([]WorkstationRow, error) {
	workstations, err := controller.resources.Workstations.Get(ctx)
	if err != nil {
		return nil, controller.Check(err)
	}
	return NewWorkstationRows(workstations), nil
}

// Operations returns the operation log
func (controller *Controller) Operations(ctx context.Context) ([]OperationRow, error) {
	operations, err := controller.resources.Operations.Get(ctx)
	if err != nil {
		return nil, controller.Check(err)
	}
	return NewOperationRows(operations), nil
}

// Operation returns a single operation fetched directly from the backend
func (controller *Controller) Operation(ctx context.Context, id fleet.ID) (*OperationRow, error) {
	operation, err := controller.api.GetOperation(ctx, id)
	if err != nil {
		return nil, controller.Check(err)
	}
	rows := NewOperationRows([]fleet.Operation{*operation})
	return &rows[0], nil
}

// PendingAction returns the action in progress for the emulator with the given key or an empty string
func (controller *Controller) PendingAction(key string) string {
	return controller.pending.Get(key)
}

// StartEmulator starts an emulator and refreshes the emulator list
func (controller *Controller) StartEmulator(ctx context.Context, workstationID fleet.ID, name string) error {
	return controller.emulatorAction(ctx, workstationID, name, ActionStarting, controller.api.StartEmulator)
}

// StopEmulator stops an emulator and refreshes the emulator list
func (controller *Controller) StopEmulator(ctx context.Context, workstationID fleet.ID, name string) error {
	return controller.emulatorAction(ctx, workstationID, name, ActionStopping, controller.api.StopEmulator)
}

// DeleteEmulator deletes an emulator and refreshes the emulator list
func (controller *Controller) DeleteEmulator(ctx context.Context, workstationID fleet.ID, name string) error {
	return controller.emulatorAction(ctx, workstationID, name, ActionDeleting, controller.api.DeleteEmulator)
}

// CreateEmulator creates an emulator and refreshes the emulator list
func (controller *Controller) CreateEmulator(ctx context.Context, workstationID fleet.ID, name string, config map[string]any) error {
	return controller.emulatorAction(ctx, workstationID, name, ActionCreating, func(ctx context.Context, workstationID fleet.ID, name string) (*fleet.Result, error) {
		return controller.api.CreateEmulator(ctx, workstationID, name, config)
	})
}

func (controller *Controller) emulatorAction(ctx context.Context, workstationID fleet.ID, name, action string,
	call func(ctx context.Context, workstationID fleet.ID, name string) (*fleet.Result, error)) error {
	key := (&fleet.Emulator{WorkstationID: workstationID, Name: name}).Key()
	controller.pending.Set(key, action)
	defer controller.pending.Unset(key)

	if _, err := call(ctx, workstationID, name); err != nil {
		log.Debug().Err(err).Str("emulator", key).Str("action", action).Msg("emulator action failed")
		return controller.Check(fmt.Errorf("%s %s: %w", action, name, err))
	}
	log.Info().Str("emulator", key).Str("action", action).Msg("emulator action succeeded")
	refresh(ctx, controller, controller.resources.Emulators)
	return nil
}

// AddWorkstation registers a workstation and refreshes the workstation list
func (controller *Controller) AddWorkstation(ctx context.Context, create *fleet.WorkstationCreate) (*fleet.Workstation, error) {
	workstation, err := controller.api.AddWorkstation(ctx, create)
	if err != nil {
		return nil, controller.Check(err)
	}
	refresh(ctx, controller, controller.resources.Workstations)
	return workstation, nil
}

// RemoveWorkstation removes a workstation and refreshes the workstation list
func (controller *Controller) RemoveWorkstation(ctx context.Context, id fleet.ID) error {
	if _, err := controller.api.RemoveWorkstation(ctx, id); err != nil {
		return controller.Check(err)
	}
	refresh(ctx, controller, controller.resources.Workstations)
	return nil
}

// TestConnection checks whether a workstation is reachable and refreshes the workstation list
func (controller *Controller) TestConnection(ctx context.Context, id fleet.ID) (*fleet.Result, error) {
	result, err := controller.api.TestConnection(ctx, id)
	if err != nil {
		return nil, controller.Check(err)
	}
	refresh(ctx, controller, controller.resources.Workstations)
	return result, nil
}

// CancelOperation cancels an operation and refreshes the operation log
func (controller *Controller) CancelOperation(ctx context.Context, id fleet.ID) error {
	if _, err := controller.api.CancelOperation(ctx, id); err != nil {
		return controller.Check(err)
	}
	refresh(ctx, controller, controller.resources.Operations)
	return nil
}

// refresh re-fetches a resource after a successful mutation.
// A failed refresh does not fail the mutation; it is logged and the subscribers receive the error snapshot.
func refresh[T any](ctx context.Context, controller *Controller, resource *poll.Resource[T]) {
	if _, err := resource.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("resource", resource.Name()).Msg("could not refresh resource")
		controller.Check(err)
	}
}
