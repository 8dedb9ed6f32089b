package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DeviceInfo describes a registered modem in a transport-friendly format.
type DeviceInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Revision     string `json:"revision,omitempty"`
	SIM          string `json:"sim"`
	// AttemptID identifies the registration; a re-plugged modem gets a new one.
	AttemptID    string `json:"attemptId,omitempty"`
}

// DaemonStatus aggregates daemon and coordinator runtime information.
type DaemonStatus struct {
	Running         bool         `json:"running"`
	PID             int          `json:"pid"`
	SessionID       string       `json:"sessionId,omitempty"`
	StartedAt       string       `json:"startedAt,omitempty"`
	State           string       `json:"state"`
	InitialScanDone bool         `json:"initialScanDone"`
	Busy            bool         `json:"busy"`
	Pending         []string     `json:"pending"`
	Devices         []DeviceInfo `json:"devices"`
	LockPath        string       `json:"lockPath"`
	SocketPath      string       `json:"socketPath"`
	HistoryPath     string       `json:"historyPath,omitempty"`
}

// SessionInfo is one device registration period from the history store.
type SessionInfo struct {
	ID           int64  `json:"id"`
	RunID        string `json:"runId"`
	Device       string `json:"device"`
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Revision     string `json:"revision,omitempty"`
	AddedAt      string `json:"addedAt"`
	RemovedAt    string `json:"removedAt,omitempty"`
	EndReason    string `json:"endReason,omitempty"`
	DurationSec  int64  `json:"durationSeconds"`
}

// FailureInfo is one open attempt that did not register a device.
type FailureInfo struct {
	ID         int64  `json:"id"`
	RunID      string `json:"runId"`
	Device     string `json:"device"`
	Discarded  bool   `json:"discarded"`
	Error      string `json:"error,omitempty"`
	OccurredAt string `json:"occurredAt"`
}
