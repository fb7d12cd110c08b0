package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/skybi/fleetdash/internal/fleet"
)

const notAvailable = "N/A"

// Summary is the view model of the system status overview.
// The reported values are displayed unmodified; only missing strings are replaced by placeholders.
type Summary struct {
	Status                string `json:"status"`
	Version               string `json:"version"`
	ConnectedWorkstations int    `json:"connected_workstations"`
	TotalEmulators        int    `json:"total_emulators"`
	ActiveOperations      int    `json:"active_operations"`
	Uptime                string `json:"uptime"`
	LastUpdate            string `json:"last_update"`
}

// NewSummary builds the summary view model out of a system status
func NewSummary(status *fleet.SystemStatus) Summary {
	if status == nil {
		status = &fleet.SystemStatus{}
	}
	summary := Summary{
		Status:                orDefault(status.Status, "Unknown"),
		Version:               orDefault(status.Version, "Unknown"),
		ConnectedWorkstations: status.ConnectedWorkstations,
		TotalEmulators:        status.TotalEmulators,
		ActiveOperations:      status.ActiveOperations,
		Uptime:                orDefault(status.Uptime, notAvailable),
		LastUpdate:            notAvailable,
	}
	if ts, ok := fleet.ParseTimestamp(status.Timestamp); ok {
		summary.LastUpdate = ts.Local().Format(time.TimeOnly)
	} else if status.Timestamp != "" {
		summary.LastUpdate = status.Timestamp
	}
	return summary
}

// EmulatorRow is the view model of a single emulator
type EmulatorRow struct {
	Key           string `json:"key"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	WorkstationID string `json:"workstation_id"`
	Workstation   string `json:"workstation"`
	Status        string `json:"status"`
	Resolution    string `json:"resolution,omitempty"`
	Running       bool   `json:"running"`

	// Action is the action currently in progress for the emulator ("starting", "stopping" or "deleting")
	Action string `json:"action,omitempty"`
}

// NewEmulatorRows builds the emulator list view model.
// pending maps emulator keys to the action in progress and may be nil.
func NewEmulatorRows(emulators []fleet.Emulator, pending func(key string) string) []EmulatorRow {
	rows := make([]EmulatorRow, 0, len(emulators))
	for i := range emulators {
		emulator := &emulators[i]
		row := EmulatorRow{
			Key:           emulator.Key(),
			ID:            orDefault(emulator.ID.String(), notAvailable),
			Name:          emulator.Name,
			WorkstationID: emulator.WorkstationID.String(),
			Workstation:   orDefault(emulator.WorkstationName, orDefault(emulator.WorkstationID.String(), "Unknown")),
			Status:        emulator.DisplayStatus(),
			Resolution:    emulator.Resolution,
			Running:       emulator.IsRunning(),
		}
		if pending != nil {
			row.Action = pending(row.Key)
		}
		rows = append(rows, row)
	}
	return rows
}

// WorkstationRow is the view model of a single workstation
type WorkstationRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Username  string `json:"username"`
	Status    string `json:"status"`
	Online    bool   `json:"online"`
	Emulators int    `json:"emulators"`
	DiskUsage string `json:"disk_usage"`
}

// NewWorkstationRows builds the workstation list view model
func NewWorkstationRows(workstations []fleet.Workstation) []WorkstationRow {
	rows := make([]WorkstationRow, 0, len(workstations))
	for i := range workstations {
		workstation := &workstations[i]
		row := WorkstationRow{
			ID:        workstation.ID.String(),
			Name:      workstation.DisplayName(),
			Address:   orDefault(workstation.Address(), notAvailable),
			Username:  workstation.Username,
			Status:    orDefault(workstation.Status, "unknown"),
			Online:    workstation.Status == "ONLINE" || workstation.Status == "online",
			Emulators: workstation.NumEmulators(),
			DiskUsage: notAvailable,
		}
		if workstation.DiskUsage != nil && *workstation.DiskUsage != 0 {
			row.DiskUsage = fmt.Sprintf("%d%%", int(math.Round(*workstation.DiskUsage)))
		}
		rows = append(rows, row)
	}
	return rows
}

// OperationRow is the view model of a single operation log entry
type OperationRow struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Target   string  `json:"target"`
	Status   string  `json:"status"`
	Active   bool    `json:"active"`
	Progress float64 `json:"progress"`
	Time     string  `json:"time"`
	Error    string  `json:"error,omitempty"`
}

// NewOperationRows builds the operation log view model
func NewOperationRows(operations []fleet.Operation) []OperationRow {
	rows := make([]OperationRow, 0, len(operations))
	for i := range operations {
		operation := &operations[i]
		row := OperationRow{
			ID:       operation.ID.String(),
			Type:     operation.Kind(),
			Target:   operation.Target(),
			Status:   operation.NormalizedStatus(),
			Active:   operation.IsActive(),
			Progress: operation.Progress,
			Time:     notAvailable,
			Error:    operation.ErrorMessage,
		}
		if created, ok := operation.Created(); ok {
			row.Time = created.Local().Format(time.TimeOnly)
		}
		rows = append(rows, row)
	}
	return rows
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
