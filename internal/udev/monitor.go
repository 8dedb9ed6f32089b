package udev

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
	"radiomon/internal/sysfs"
)

// Netlink modes accepted by ParseMode.
const (
	ModeUdev   = "udev"
	ModeKernel = "kernel"
)

// ParseMode maps a configured mode name onto a netlink multicast group.
func ParseMode(mode string) (netlink.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeUdev:
		return netlink.UdevEvent, nil
	case ModeKernel:
		return netlink.KernelEvent, nil
	default:
		return 0, fmt.Errorf("netlink mode: unsupported value %q", mode)
	}
}

// Options configures a Monitor.
type Options struct {
	Mode   string
	SysFS  sysfs.FS
	Logger *slog.Logger
}

// Monitor is a hotplug.Source backed by the kernel uevent netlink socket and
// a sysfs crawl.
type Monitor struct {
	mode   netlink.Mode
	sys    sysfs.FS
	logger *slog.Logger

	mu   sync.Mutex
	conn *netlink.UEventConn
}

// New validates the netlink mode and returns an unsubscribed Monitor.
func New(opts Options) (*Monitor, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	sys := opts.SysFS
	if sys.Root == "" {
		sys = sysfs.New("")
	}
	return &Monitor{
		mode:   mode,
		sys:    sys,
		logger: logging.NewComponentLogger(opts.Logger, "udev"),
	}, nil
}

// Subscribe connects the netlink socket and forwards translated events until
// ctx ends.
func (m *Monitor) Subscribe(ctx context.Context) (<-chan hotplug.Event, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(m.mode); err != nil {
		return nil, fmt.Errorf("connect netlink socket: %w", err)
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, buildMatcher())
	out := make(chan hotplug.Event)

	m.logger.Info("netlink monitor started",
		logging.String("mode", modeName(m.mode)),
		logging.Event("netlink_monitor_started"),
	)
	go m.monitorLoop(ctx, quit, queue, errs, out)
	return out, nil
}

// Running reports whether a netlink subscription is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

func (m *Monitor) monitorLoop(ctx context.Context, quit chan struct{}, queue <-chan netlink.UEvent, errs <-chan error, out chan<- hotplug.Event) {
	defer close(out)
	defer m.stop(quit)

	for {
		select {
		case <-ctx.Done():
			return
		case uevent := <-queue:
			ev, ok := m.translate(uevent)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.Event("netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "a hotplug event may have been missed"),
			)
		}
	}
}

func (m *Monitor) stop(quit chan struct{}) {
	close(quit)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.logger.Info("netlink monitor stopped",
		logging.Event("netlink_monitor_stopped"),
	)
}

// translate turns a uevent into a hotplug event. Events without a device
// path are dropped.
func (m *Monitor) translate(uevent netlink.UEvent) (hotplug.Event, bool) {
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		devpath = uevent.KObj
	}
	if devpath == "" {
		return hotplug.Event{}, false
	}
	ev := hotplug.Event{
		Action:    hotplug.ParseAction(string(uevent.Action)),
		Subsystem: uevent.Env["SUBSYSTEM"],
		Name:      path.Base(devpath),
		Driver:    uevent.Env["DRIVER"],
	}
	if ev.Action != hotplug.ActionRemove && ev.Driver == "" {
		ev.ParentDriver = m.sys.ParentDriver(devpath)
	}
	m.logger.Debug("uevent received",
		logging.String("action", string(ev.Action)),
		logging.String("subsystem", ev.Subsystem),
		logging.Device(ev.Name),
		logging.String("driver", ev.Driver),
		logging.String("parent_driver", ev.ParentDriver),
	)
	return ev, true
}

// buildMatcher keeps USB-family uevents only.
func buildMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"SUBSYSTEM": "^usb",
		},
	})
	return rules
}

func modeName(mode netlink.Mode) string {
	if mode == netlink.KernelEvent {
		return ModeKernel
	}
	return ModeUdev
}
