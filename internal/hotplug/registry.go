package hotplug

// Registry is the ordered list of live devices keyed by Device.Name. It is
// not synchronized; only the coordinator loop touches it.
type Registry struct {
	entries []registration
}

type registration struct {
	dev       Device
	attemptID string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Append registers dev after every existing entry. attemptID names the open
// attempt that produced dev.
func (r *Registry) Append(dev Device, attemptID string) {
	r.entries = append(r.entries, registration{dev: dev, attemptID: attemptID})
}

// RemoveByName drops the device called name and returns it, or nil when no
// such device is registered.
func (r *Registry) RemoveByName(name string) Device {
	for i, entry := range r.entries {
		if entry.dev.Name() == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return entry.dev
		}
	}
	return nil
}

// FindByName returns the device registered as name, or nil.
func (r *Registry) FindByName(name string) Device {
	for _, entry := range r.entries {
		if entry.dev.Name() == name {
			return entry.dev
		}
	}
	return nil
}

// List returns the devices in insertion order.
func (r *Registry) List() []Device {
	devices := make([]Device, 0, len(r.entries))
	for _, entry := range r.entries {
		devices = append(devices, entry.dev)
	}
	return devices
}

// Attempts maps each registered name to the attempt that opened it.
func (r *Registry) Attempts() map[string]string {
	attempts := make(map[string]string, len(r.entries))
	for _, entry := range r.entries {
		attempts[entry.dev.Name()] = entry.attemptID
	}
	return attempts
}

// Len is the number of registered devices.
func (r *Registry) Len() int { return len(r.entries) }
