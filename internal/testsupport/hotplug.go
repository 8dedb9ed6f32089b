package testsupport

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"radiomon/internal/hotplug"
)

// StaticSource is a hotplug.Source whose enumeration is fixed and whose feed
// is driven by Emit.
type StaticSource struct {
	Existing []hotplug.Event

	mu   sync.Mutex
	feed chan hotplug.Event
}

// NewStaticSource returns a source that enumerates existing.
func NewStaticSource(existing ...hotplug.Event) *StaticSource {
	return &StaticSource{Existing: existing, feed: make(chan hotplug.Event)}
}

func (s *StaticSource) Subscribe(ctx context.Context) (<-chan hotplug.Event, error) {
	out := make(chan hotplug.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.feed:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *StaticSource) Enumerate(context.Context, []string) ([]hotplug.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hotplug.Event(nil), s.Existing...), nil
}

// Emit delivers ev to the subscriber, blocking until it is taken or ctx ends.
func (s *StaticSource) Emit(ctx context.Context, ev hotplug.Event) error {
	select {
	case s.feed <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ModemEvent builds an event the default filter accepts.
func ModemEvent(action hotplug.Action, name string) hotplug.Event {
	return hotplug.Event{
		Action:       action,
		Subsystem:    "usbmisc",
		Name:         name,
		ParentDriver: hotplug.DefaultDriver,
	}
}

// StubDevice is an in-memory hotplug.Device.
type StubDevice struct {
	NameValue  string
	PathValue  string
	Maker      string
	ModelValue string
	Rev        string

	closes atomic.Int32
}

func (d *StubDevice) Name() string           { return d.NameValue }
func (d *StubDevice) Path() string           { return d.PathValue }
func (d *StubDevice) Manufacturer() string   { return d.Maker }
func (d *StubDevice) Model() string          { return d.ModelValue }
func (d *StubDevice) Revision() string       { return d.Rev }
func (d *StubDevice) Status() hotplug.LockStatus { return hotplug.LockUnknown }

func (d *StubDevice) Close(context.Context) error {
	if d.closes.Add(1) > 1 {
		return errors.New("stub device closed twice")
	}
	return nil
}

// Closed reports whether Close has been called.
func (d *StubDevice) Closed() bool {
	return d.closes.Load() > 0
}

// StubDriver opens StubDevices immediately and remembers them by name.
type StubDriver struct {
	mu      sync.Mutex
	opened  map[string]*StubDevice
	Failing map[string]error
}

// NewStubDriver returns a driver with no failing names.
func NewStubDriver() *StubDriver {
	return &StubDriver{opened: make(map[string]*StubDevice), Failing: make(map[string]error)}
}

func (d *StubDriver) Open(ctx context.Context, path string) (hotplug.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Failing[name]; err != nil {
		return nil, err
	}
	dev := &StubDevice{NameValue: name, PathValue: path, Maker: "Quectel", ModelValue: "EG25-G", Rev: "3.18"}
	d.opened[name] = dev
	return dev, nil
}

// Opened returns the last device opened for name.
func (d *StubDriver) Opened(name string) *StubDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened[name]
}
