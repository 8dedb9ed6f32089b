package ipc

import "radiomon/internal/api"

// ServiceName is the net/rpc service the daemon registers.
const ServiceName = "Radiomon"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon and coordinator status.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// DevicesRequest lists registered devices.
type DevicesRequest struct{}

// DevicesResponse contains registered devices in registration order.
type DevicesResponse struct {
	Devices []api.DeviceInfo `json:"devices"`
}

// ShutdownRequest asks the daemon to drain and exit.
type ShutdownRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ShutdownResponse acknowledges a shutdown request. The drain happens after
// the response is sent.
type ShutdownResponse struct {
	Accepted bool   `json:"accepted"`
	PID      int    `json:"pid"`
	Message  string `json:"message,omitempty"`
}

// TestNotificationRequest asks the daemon to send a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether a test notification was delivered.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}
