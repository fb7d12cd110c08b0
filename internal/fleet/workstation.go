package fleet

// Workstation represents a remote host running emulator instances
type Workstation struct {
	ID            ID         `json:"id"`
	Name          string     `json:"name,omitempty"`
	Hostname      string     `json:"hostname,omitempty"`
	Path          string     `json:"path,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	Port          int        `json:"port,omitempty"`
	Username      string     `json:"username,omitempty"`
	Status        string     `json:"status,omitempty"`
	DiskUsage     *float64   `json:"disk_usage,omitempty"`
	EmulatorCount *int       `json:"emulator_count,omitempty"`
	Emulators     []Emulator `json:"emulators,omitempty"`
}

// DisplayName returns the name of the workstation, falling back to its hostname and ID
func (workstation *Workstation) DisplayName() string {
	switch {
	case workstation.Name != "":
		return workstation.Name
	case workstation.Hostname != "":
		return workstation.Hostname
	default:
		return workstation.ID.String()
	}
}

// Address returns the IP address of the workstation, falling back to its path
func (workstation *Workstation) Address() string {
	if workstation.IPAddress != "" {
		return workstation.IPAddress
	}
	return workstation.Path
}

// NumEmulators returns the amount of emulators hosted on the workstation
func (workstation *Workstation) NumEmulators() int {
	if workstation.EmulatorCount != nil {
		return *workstation.EmulatorCount
	}
	return len(workstation.Emulators)
}

// WorkstationCreate is the request body used to register a workstation.
// The backend accepts either a hostname/path pair or a name/ip_address pair.
type WorkstationCreate struct {
	Name      string         `json:"name,omitempty"`
	Hostname  string         `json:"hostname,omitempty"`
	Path      string         `json:"path,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Port      int            `json:"port,omitempty"`
	Username  string         `json:"username,omitempty"`
	Password  string         `json:"password,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}
