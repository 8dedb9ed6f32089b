package api

import (
	"time"

	"radiomon/internal/daemon"
	"radiomon/internal/history"
	"radiomon/internal/hotplug"
)

// FromDevice converts a live device into its transport representation.
func FromDevice(dev hotplug.Device) DeviceInfo {
	if dev == nil {
		return DeviceInfo{}
	}
	return DeviceInfo{
		Name:         dev.Name(),
		Path:         dev.Path(),
		Manufacturer: dev.Manufacturer(),
		Model:        dev.Model(),
		Revision:     dev.Revision(),
		SIM:          dev.Status().String(),
	}
}

// FromDevices converts devices preserving order. The result is never nil.
func FromDevices(devs []hotplug.Device) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(devs))
	for _, dev := range devs {
		out = append(out, FromDevice(dev))
	}
	return out
}

// DevicesFromStatus converts the registered devices of a coordinator
// snapshot, tagging each with the attempt that opened it.
func DevicesFromStatus(status hotplug.Status) []DeviceInfo {
	out := FromDevices(status.Devices)
	for i := range out {
		out[i].AttemptID = status.Attempts[out[i].Name]
	}
	return out
}

// FromDaemonStatus converts a daemon status snapshot.
func FromDaemonStatus(status daemon.Status) DaemonStatus {
	pending := status.Hotplug.Pending
	if pending == nil {
		pending = []string{}
	}
	return DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		SessionID:       status.SessionID,
		StartedAt:       formatTime(status.StartedAt),
		State:           status.Hotplug.State.String(),
		InitialScanDone: status.Hotplug.InitialScanDone,
		Busy:            status.Hotplug.Busy,
		Pending:         append([]string(nil), pending...),
		Devices:         DevicesFromStatus(status.Hotplug),
		LockPath:        status.LockPath,
		SocketPath:      status.SocketPath,
		HistoryPath:     status.HistoryPath,
	}
}

// FromSession converts a history session. Active sessions are measured
// against now.
func FromSession(s history.Session, now time.Time) SessionInfo {
	info := SessionInfo{
		ID:           s.ID,
		RunID:        s.RunID,
		Device:       s.Device,
		Path:         s.Path,
		Manufacturer: s.Manufacturer,
		Model:        s.Model,
		Revision:     s.Revision,
		AddedAt:      formatTime(s.AddedAt),
		EndReason:    s.EndReason,
		DurationSec:  int64(s.Duration(now) / time.Second),
	}
	if s.RemovedAt != nil {
		info.RemovedAt = formatTime(*s.RemovedAt)
	}
	return info
}

// FromFailure converts a history failure row.
func FromFailure(f history.Failure) FailureInfo {
	return FailureInfo{
		ID:         f.ID,
		RunID:      f.RunID,
		Device:     f.Device,
		Discarded:  f.Discarded,
		Error:      f.Error,
		OccurredAt: formatTime(f.OccurredAt),
	}
}

// ParseTime parses a timestamp produced by this package.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
