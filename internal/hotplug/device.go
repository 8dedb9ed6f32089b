package hotplug

import "context"

// LockStatus is the SIM lock state a modem reports.
type LockStatus int

const (
	LockUnknown LockStatus = iota
	LockReady
	LockSIMPin
	LockSIMPuk
	LockSIMError
)

func (s LockStatus) String() string {
	switch s {
	case LockReady:
		return "ready"
	case LockSIMPin:
		return "sim-pin-locked"
	case LockSIMPuk:
		return "sim-puk-locked"
	case LockSIMError:
		return "sim-error"
	default:
		return "unknown"
	}
}

// Device is a live, fully opened modem handle.
type Device interface {
	// Name is the device node name, e.g. cdc-wdm0. It must equal the base name
	// of the path the device was opened from.
	Name() string
	Path() string
	Manufacturer() string
	Model() string
	Revision() string
	Status() LockStatus
	Close(ctx context.Context) error
}

// Driver opens device nodes. Open must return promptly once ctx is done.
type Driver interface {
	Open(ctx context.Context, path string) (Device, error)
}
