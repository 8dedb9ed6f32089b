package udev

import (
	"context"
	"path"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
)

// Enumerate crawls devices already present and returns those in the given
// subsystems as add events, grouped in subsystem order.
func (m *Monitor) Enumerate(ctx context.Context, subsystems []string) ([]hotplug.Event, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	quit := crawler.ExistingDevices(queue, errs, deviceNodeMatcher())

	devices, err := m.collect(ctx, quit, queue, errs)
	if err != nil {
		return nil, err
	}
	events := m.existingEvents(devices, subsystems)
	m.logger.Debug("existing devices crawled",
		logging.Int("devices", len(devices)),
		logging.Int("matched", len(events)),
		logging.Event("udev_enumerated"),
	)
	return events, nil
}

func (m *Monitor) collect(ctx context.Context, quit chan struct{}, queue <-chan crawler.Device, errs <-chan error) ([]crawler.Device, error) {
	var devices []crawler.Device
	unreadable := 0
	for {
		select {
		case <-ctx.Done():
			close(quit)
			return nil, ctx.Err()
		case dev, ok := <-queue:
			if !ok {
				if unreadable > 0 {
					m.logger.Debug("some uevent files were unreadable", logging.Int("count", unreadable))
				}
				return devices, nil
			}
			devices = append(devices, dev)
		case <-errs:
			unreadable++
		}
	}
}

// existingEvents keeps devices in the requested subsystems, resolving any
// attribution the uevent file leaves out from sysfs.
func (m *Monitor) existingEvents(devices []crawler.Device, subsystems []string) []hotplug.Event {
	bySubsystem := make(map[string][]hotplug.Event, len(subsystems))
	for _, subsystem := range subsystems {
		bySubsystem[subsystem] = nil
	}
	for _, dev := range devices {
		devpath := m.sys.DevPath(dev.KObj)
		subsystem := dev.Env["SUBSYSTEM"]
		if subsystem == "" {
			subsystem = m.sys.Subsystem(devpath)
		}
		if _, wanted := bySubsystem[subsystem]; !wanted {
			continue
		}
		ev := hotplug.Event{
			Action:    hotplug.ActionAdd,
			Subsystem: subsystem,
			Name:      path.Base(devpath),
			Driver:    dev.Env["DRIVER"],
		}
		if ev.Driver == "" {
			ev.Driver = m.sys.Driver(devpath)
		}
		if ev.Driver == "" {
			ev.ParentDriver = m.sys.ParentDriver(devpath)
		}
		bySubsystem[subsystem] = append(bySubsystem[subsystem], ev)
	}

	var events []hotplug.Event
	for _, subsystem := range subsystems {
		events = append(events, bySubsystem[subsystem]...)
		bySubsystem[subsystem] = nil
	}
	return events
}

// deviceNodeMatcher keeps devices that expose a /dev node.
func deviceNodeMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"DEVNAME": ".",
		},
	})
	return rules
}
