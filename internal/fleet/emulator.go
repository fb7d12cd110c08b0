package fleet

// Emulator statuses reported by the backend
const (
	EmulatorRunning = "running"
	EmulatorStopped = "stopped"
	EmulatorUnknown = "unknown"
)

// Emulator represents an emulator instance hosted on a workstation
type Emulator struct {
	ID              ID             `json:"id"`
	Name            string         `json:"name"`
	WorkstationID   ID             `json:"workstation_id"`
	WorkstationName string         `json:"workstation_name,omitempty"`
	Status          string         `json:"status"`
	Resolution      string         `json:"resolution,omitempty"`
	Config          map[string]any `json:"config,omitempty"`
}

// IsRunning reports whether the backend considers the emulator running
func (emulator *Emulator) IsRunning() bool {
	return emulator.Status == EmulatorRunning
}

// DisplayStatus returns the status to show, 'unknown' if the backend did not report one
func (emulator *Emulator) DisplayStatus() string {
	if emulator.Status == "" {
		return EmulatorUnknown
	}
	return emulator.Status
}

// Key returns the identifier the dashboard uses to track per-emulator action state
func (emulator *Emulator) Key() string {
	ws := emulator.WorkstationID.String()
	if ws == "" {
		ws = "unknown"
	}
	return ws + "-" + emulator.Name
}

// EmulatorRef is the request body identifying an emulator by its workstation and name
type EmulatorRef struct {
	WorkstationID ID     `json:"workstation_id"`
	Name          string `json:"name"`
}

// EmulatorCreate is the request body used to create an emulator
type EmulatorCreate struct {
	WorkstationID ID             `json:"workstation_id"`
	Name          string         `json:"name"`
	Config        map[string]any `json:"config"`
}
