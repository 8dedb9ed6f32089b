package history

import (
	"time"

	"radiomon/internal/hotplug"
)

// DeviceRecord is the identity captured when a device registers.
type DeviceRecord struct {
	Name         string
	Path         string
	Manufacturer string
	Model        string
	Revision     string
}

// RecordFromDevice snapshots the identity of a live device.
func RecordFromDevice(dev hotplug.Device) DeviceRecord {
	return DeviceRecord{
		Name:         dev.Name(),
		Path:         dev.Path(),
		Manufacturer: dev.Manufacturer(),
		Model:        dev.Model(),
		Revision:     dev.Revision(),
	}
}

// Session is one registration period of a device.
type Session struct {
	ID           int64
	RunID        string
	Device       string
	Path         string
	Manufacturer string
	Model        string
	Revision     string
	AddedAt      time.Time
	RemovedAt    *time.Time
	EndReason    string
}

// Active reports whether the session has not been closed yet.
func (s Session) Active() bool {
	return s.RemovedAt == nil
}

// Duration returns how long the device stayed registered. Active sessions
// are measured against now.
func (s Session) Duration(now time.Time) time.Duration {
	if s.AddedAt.IsZero() {
		return 0
	}
	end := now
	if s.RemovedAt != nil {
		end = *s.RemovedAt
	}
	if end.Before(s.AddedAt) {
		return 0
	}
	return end.Sub(s.AddedAt)
}

// Failure is an open attempt that did not produce a registered device.
type Failure struct {
	ID         int64
	RunID      string
	Device     string
	Discarded  bool
	Error      string
	OccurredAt time.Time
}
