package hotplug

import "strings"

// Filter defaults for QMI control channels.
const (
	DefaultSubsystemPrefix = "usb"
	DefaultNamePrefix      = "cdc-wdm"
	DefaultDriver          = "qmi_wwan"
)

// Filter decides which device events denote a modem control channel.
type Filter struct {
	SubsystemPrefix string
	NamePrefix      string
	Driver          string
}

// DefaultFilter matches cdc-wdm nodes bound to qmi_wwan on a USB subsystem.
func DefaultFilter() Filter {
	return Filter{
		SubsystemPrefix: DefaultSubsystemPrefix,
		NamePrefix:      DefaultNamePrefix,
		Driver:          DefaultDriver,
	}
}

// Accepts reports whether ev should be managed. Missing fields reject.
func (f Filter) Accepts(ev Event) bool {
	if ev.Subsystem == "" || !strings.HasPrefix(ev.Subsystem, f.SubsystemPrefix) {
		return false
	}
	if ev.Name == "" || !strings.HasPrefix(ev.Name, f.NamePrefix) {
		return false
	}
	driver := ev.Driver
	if driver == "" {
		driver = ev.ParentDriver
	}
	if driver == "" {
		return false
	}
	return driver == f.Driver
}

func (f Filter) withDefaults() Filter {
	def := DefaultFilter()
	if strings.TrimSpace(f.SubsystemPrefix) == "" {
		f.SubsystemPrefix = def.SubsystemPrefix
	}
	if strings.TrimSpace(f.NamePrefix) == "" {
		f.NamePrefix = def.NamePrefix
	}
	if strings.TrimSpace(f.Driver) == "" {
		f.Driver = def.Driver
	}
	return f
}
