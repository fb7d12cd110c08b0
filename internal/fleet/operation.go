package fleet

import (
	"strings"
	"time"
)

// Operation statuses reported by the backend
const (
	OperationPending = "PENDING"
	OperationRunning = "RUNNING"
	OperationSuccess = "SUCCESS"
	OperationFailed  = "FAILED"
)

// Timestamp layouts the backend is known to send; Python's isoformat omits the zone
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Operation represents an asynchronous backend task record
type Operation struct {
	ID              ID      `json:"id"`
	OperationType   string  `json:"operation_type,omitempty"`
	Type            string  `json:"type,omitempty"`
	WorkstationID   ID      `json:"workstation_id"`
	WorkstationName string  `json:"workstation_name,omitempty"`
	EmulatorID      ID      `json:"emulator_id"`
	EmulatorName    string  `json:"emulator_name,omitempty"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	CreatedAt       string  `json:"created_at,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	Result          any     `json:"result,omitempty"`
}

// Kind returns the operation type; older backends send it as 'type'
func (operation *Operation) Kind() string {
	if operation.OperationType != "" {
		return operation.OperationType
	}
	return operation.Type
}

// NormalizedStatus returns the upper-case status.
// Some backend versions report lower-case statuses and COMPLETED instead of SUCCESS.
func (operation *Operation) NormalizedStatus() string {
	status := strings.ToUpper(operation.Status)
	if status == "COMPLETED" {
		return OperationSuccess
	}
	return status
}

// IsActive reports whether the operation is still pending or running
func (operation *Operation) IsActive() bool {
	status := operation.NormalizedStatus()
	return status == OperationPending || status == OperationRunning
}

// Target returns the resource reference the operation acts on
func (operation *Operation) Target() string {
	switch {
	case !operation.WorkstationID.IsZero():
		return operation.WorkstationID.String()
	case !operation.EmulatorID.IsZero():
		return operation.EmulatorID.String()
	case operation.EmulatorName != "":
		return operation.EmulatorName
	default:
		return "N/A"
	}
}

// Created parses the creation timestamp.
// The second return value is false if the backend did not send a parsable timestamp.
func (operation *Operation) Created() (time.Time, bool) {
	return ParseTimestamp(operation.CreatedAt)
}

// ParseTimestamp parses a backend timestamp in any of the known layouts
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
