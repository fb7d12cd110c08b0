package client

import (
	"context"
	"net/http"

	"github.com/skybi/fleetdash/internal/fleet"
)

const pathEmulators = "/api/emulators"

// GetEmulators retrieves all emulators of all workstations
func (client *Client) GetEmulators(ctx context.Context) ([]fleet.Emulator, error) {
	var emulators fleet.List[fleet.Emulator]
	if err := client.Request(ctx, pathEmulators, nil, &emulators); err != nil {
		return nil, err
	}
	return emulators, nil
}

// CreateEmulator creates a new emulator on a workstation
func (client *Client) CreateEmulator(ctx context.Context, workstationID fleet.ID, name string, config map[string]any) (*fleet.Result, error) {
	if config == nil {
		config = map[string]any{}
	}
	return client.emulatorAction(ctx, http.MethodPost, pathEmulators, &fleet.EmulatorCreate{
		WorkstationID: workstationID,
		Name:          name,
		Config:        config,
	})
}

// StartEmulator starts an emulator
func (client *Client) StartEmulator(ctx context.Context, workstationID fleet.ID, name string) (*fleet.Result, error) {
	return client.emulatorAction(ctx, http.MethodPost, pathEmulators+"/start", &fleet.EmulatorRef{WorkstationID: workstationID, Name: name})
}

// StopEmulator stops an emulator
func (client *Client) StopEmulator(ctx context.Context, workstationID fleet.ID, name string) (*fleet.Result, error) {
	return client.emulatorAction(ctx, http.MethodPost, pathEmulators+"/stop", &fleet.EmulatorRef{WorkstationID: workstationID, Name: name})
}

// DeleteEmulator deletes an emulator; the reference is sent as DELETE body
func (client *Client) DeleteEmulator(ctx context.Context, workstationID fleet.ID, name string) (*fleet.Result, error) {
	return client.emulatorAction(ctx, http.MethodDelete, pathEmulators, &fleet.EmulatorRef{WorkstationID: workstationID, Name: name})
}

func (client *Client) emulatorAction(ctx context.Context, method, path string, body any) (*fleet.Result, error) {
	result := new(fleet.Result)
	if err := client.Request(ctx, path, &RequestOptions{Method: method, Body: body}, result); err != nil {
		return nil, err
	}
	return result, nil
}
