package fleet

// SystemStatus represents the response of the system status endpoint
type SystemStatus struct {
	Status                string `json:"status"`
	Version               string `json:"version"`
	ConnectedWorkstations int    `json:"connected_workstations"`
	TotalEmulators        int    `json:"total_emulators"`
	ActiveOperations      int    `json:"active_operations"`
	Uptime                string `json:"uptime,omitempty"`
	Timestamp             string `json:"timestamp,omitempty"`
}

// Health represents the response of the health endpoint.
// Depending on the backend version the status is sent at the top level or inside 'data'.
type Health struct {
	Status    string         `json:"status,omitempty"`
	Success   *bool          `json:"success,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Version   string         `json:"version,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// DisplayStatus returns the reported health status
func (health *Health) DisplayStatus() string {
	if health.Status != "" {
		return health.Status
	}
	if status, ok := health.Data["status"].(string); ok {
		return status
	}
	if health.Success != nil && *health.Success {
		return "healthy"
	}
	return "unknown"
}

// Result represents the generic acknowledgement the backend sends for mutating requests
type Result struct {
	Success *bool          `json:"success,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}
