package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/poll"
)

const clearScreen = "\033[H\033[2J"

// watchView is the latest state of a watched resource
type watchView struct {
	render func(out io.Writer) error
	err    error
}

// watchState collects the views of every watched resource out of the delivered snapshots
type watchState struct {
	mtx     sync.Mutex
	views   map[string]*watchView
	updates chan struct{}
}

// record stores the outcome of a poll; a failed poll keeps the last rendered view
func (state *watchState) record(name string, render func(out io.Writer) error, err error) {
	state.mtx.Lock()
	view, ok := state.views[name]
	if !ok {
		view = new(watchView)
		state.views[name] = view
	}
	view.err = err
	if err == nil {
		view.render = render
	}
	state.mtx.Unlock()

	select {
	case state.updates <- struct{}{}:
	default:
	}
}

func (state *watchState) write(screen io.Writer, names []string) {
	state.mtx.Lock()
	defer state.mtx.Unlock()
	for _, name := range names {
		fmt.Fprintf(screen, "\n== %s ==\n", name)
		view, ok := state.views[name]
		if !ok {
			fmt.Fprintln(screen, "Loading...")
			continue
		}
		if view.err != nil {
			fmt.Fprintf(screen, "Error: %s\n", client.Message(view.err))
		}
		if view.render != nil {
			if err := view.render(screen); err != nil {
				fmt.Fprintf(screen, "Error: %s\n", err)
			}
		}
	}
}

func subscribe[T any](app *app, state *watchState, resource *poll.Resource[T], render func(value T, out io.Writer) error) func() {
	return resource.Subscribe(func(snapshot poll.Snapshot[T]) {
		if snapshot.Err != nil {
			app.controller.Check(snapshot.Err)
		}
		value := snapshot.Value
		state.record(resource.Name(), func(out io.Writer) error {
			return render(value, out)
		}, snapshot.Err)
	})
}

// watch renders the selected resources every time one of them is polled until the context is done
// or the session expires
func watch(ctx context.Context, app *app, out io.Writer, names []string) error {
	if len(names) == 0 {
		names = []string{dashboard.ResourceStatus, dashboard.ResourceEmulators, dashboard.ResourceWorkstations, dashboard.ResourceOperations}
	}
	state := &watchState{
		views:   make(map[string]*watchView),
		updates: make(chan struct{}, 1),
	}

	controller := app.controller
	resources := controller.Resources()
	for _, name := range names {
		var unsubscribe func()
		switch name {
		case dashboard.ResourceStatus:
			unsubscribe = subscribe(app, state, resources.Status, func(status *fleet.SystemStatus, out io.Writer) error {
				return dashboard.RenderSummary(out, dashboard.NewSummary(status))
			})
		case dashboard.ResourceEmulators:
			unsubscribe = subscribe(app, state, resources.Emulators, func(emulators []fleet.Emulator, out io.Writer) error {
				return dashboard.RenderEmulators(out, dashboard.NewEmulatorRows(emulators, controller.PendingAction))
			})
		case dashboard.ResourceWorkstations:
			unsubscribe = subscribe(app, state, resources.Workstations, func(workstations []fleet.Workstation, out io.Writer) error {
				return dashboard.RenderWorkstations(out, dashboard.NewWorkstationRows(workstations))
			})
		case dashboard.ResourceOperations:
			unsubscribe = subscribe(app, state, resources.Operations, func(operations []fleet.Operation, out io.Writer) error {
				return dashboard.RenderOperations(out, dashboard.NewOperationRows(operations))
			})
		default:
			continue
		}
		defer unsubscribe()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-app.loginRequired:
			return errLoginRequired
		case <-state.updates:
			screen := new(bytes.Buffer)
			screen.WriteString(clearScreen)
			fmt.Fprintf(screen, "fleetdash - %s\n", time.Now().Format(time.TimeOnly))
			state.write(screen, names)
			if _, err := out.Write(screen.Bytes()); err != nil {
				return err
			}
		}
	}
}
