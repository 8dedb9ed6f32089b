package hotplug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"radiomon/internal/logging"
)

// State is the coordinator lifecycle phase.
type State int32

const (
	StateBooting State = iota
	StateSteady
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateSteady:
		return "steady"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DefaultSubsystems are enumerated at startup, in this order.
var DefaultSubsystems = []string{"usb", "usbmisc"}

// DefaultDevDir is where device nodes are looked up by name.
const DefaultDevDir = "/dev"

// ErrAlreadyStarted is returned by Start when the coordinator was started
// or shut down before.
var ErrAlreadyStarted = errors.New("hotplug: coordinator already started")

// Options configures a Coordinator.
type Options struct {
	Source     Source
	Driver     Driver
	Filter     Filter
	DevDir     string
	Subsystems []string
	// OpenTimeout and CloseTimeout bound each driver call. Zero means no bound
	// beyond cancellation.
	OpenTimeout  time.Duration
	CloseTimeout time.Duration
	Observer     Observer
	Logger       *slog.Logger
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	State           State
	InitialScanDone bool
	Busy            bool
	Pending         []string
	Devices         []Device
	// Attempts maps each registered device name to the open attempt that
	// produced it. A re-plugged modem gets a new attempt.
	Attempts        map[string]string
}

// Coordinator owns the pending set and the device registry. All mutation
// happens on a single loop goroutine; driver calls run on their own
// goroutines and post their results back through the mailbox.
type Coordinator struct {
	source       Source
	driver       Driver
	filter       Filter
	devDir       string
	subsystems   []string
	openTimeout  time.Duration
	closeTimeout time.Duration
	observer     Observer
	attempts     AttemptObserver
	logger       *slog.Logger

	mailbox  chan func()
	drainReq chan struct{}
	done     chan struct{}

	startOnce    sync.Once
	shutdownOnce sync.Once
	closers      sync.WaitGroup
	status       atomic.Pointer[Status]

	// Loop-owned state.
	state      State
	pending    *PendingSet
	registry   *Registry
	scanIssued bool
	scanDone   bool
	barrier    *drainBarrier
	events     <-chan Event
	stopFeed   context.CancelFunc
}

// New validates opts and returns a coordinator that has not been started.
func New(opts Options) (*Coordinator, error) {
	if opts.Source == nil {
		return nil, errors.New("hotplug: source is required")
	}
	if opts.Driver == nil {
		return nil, errors.New("hotplug: driver is required")
	}
	devDir := strings.TrimSpace(opts.DevDir)
	if devDir == "" {
		devDir = DefaultDevDir
	}
	subsystems := opts.Subsystems
	if len(subsystems) == 0 {
		subsystems = DefaultSubsystems
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	attempts, _ := observer.(AttemptObserver)

	c := &Coordinator{
		source:       opts.Source,
		driver:       opts.Driver,
		filter:       opts.Filter.withDefaults(),
		devDir:       devDir,
		subsystems:   append([]string(nil), subsystems...),
		openTimeout:  opts.OpenTimeout,
		closeTimeout: opts.CloseTimeout,
		observer:     observer,
		attempts:     attempts,
		logger:       logging.NewComponentLogger(opts.Logger, "hotplug"),
		mailbox:      make(chan func()),
		drainReq:     make(chan struct{}),
		done:         make(chan struct{}),
		registry:     NewRegistry(),
		stopFeed:     func() {},
	}
	c.pending = NewPendingSet(c.detectionChanged)
	c.publish()
	return c, nil
}

// Start subscribes to the event feed and launches the loop, whose first work
// item is the initial enumeration. Cancelling ctx begins the drain; call
// Shutdown to wait for it.
func (c *Coordinator) Start(ctx context.Context) error {
	started := false
	c.startOnce.Do(func() {
		started = true
		feedCtx, cancel := context.WithCancel(context.Background())
		c.stopFeed = cancel
		events, err := c.source.Subscribe(feedCtx)
		if err != nil {
			logging.WarnWithContext(c.logger, "hotplug subscription failed; continuing with startup enumeration only", "hotplug_subscribe_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
				logging.String(logging.FieldImpact, "modems plugged in after startup will not be detected"),
			)
			events = nil
		}
		c.events = events
		go c.run(ctx)
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// Shutdown drains the coordinator: pending opens are cancelled, registered
// devices are closed, and the call blocks until both sets are empty. It is
// safe to call more than once and from several goroutines.
func (c *Coordinator) Shutdown() {
	c.startOnce.Do(func() {
		c.state = StateStopped
		c.publish()
		close(c.done)
	})
	c.shutdownOnce.Do(func() { close(c.drainReq) })
	<-c.done
	c.closers.Wait()
}

// Done is closed once the coordinator reaches StateStopped.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Status returns the most recently published snapshot.
func (c *Coordinator) Status() Status {
	snap := c.status.Load()
	out := *snap
	out.Pending = append([]string(nil), snap.Pending...)
	out.Devices = append([]Device(nil), snap.Devices...)
	out.Attempts = maps.Clone(snap.Attempts)
	return out
}

// Devices lists live devices in registration order.
func (c *Coordinator) Devices() []Device {
	return append([]Device(nil), c.status.Load().Devices...)
}

// InitialScanDone reports whether startup enumeration has fully resolved.
func (c *Coordinator) InitialScanDone() bool {
	return c.status.Load().InitialScanDone
}

// State returns the current lifecycle phase.
func (c *Coordinator) State() State {
	return c.status.Load().State
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	c.initialScan(ctx)
	c.publish()

	stop := ctx.Done()
	drainReq := c.drainReq
	for c.state != StateStopped {
		events := c.events
		if c.state == StateDraining {
			events = nil
		}
		select {
		case fn := <-c.mailbox:
			fn()
		case ev, ok := <-events:
			if !ok {
				c.events = nil
				c.logger.Info("hotplug event feed closed", logging.Event("hotplug_feed_closed"))
				break
			}
			c.handleEvent(ev)
		case <-stop:
			stop = nil
			c.beginDrain("context cancelled")
		case <-drainReq:
			drainReq = nil
			c.beginDrain("shutdown requested")
		}
		c.publish()
	}
	c.stopFeed()
}

func (c *Coordinator) initialScan(ctx context.Context) {
	c.scanIssued = true
	events, err := c.source.Enumerate(ctx, c.subsystems)
	if err != nil {
		logging.WarnWithContext(c.logger, "initial device enumeration failed", "initial_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that sysfs is mounted and readable"),
			logging.String(logging.FieldImpact, "modems already present at startup may be missed"),
		)
	}
	c.logger.Debug("initial enumeration issued",
		logging.Int("records", len(events)),
		logging.Event("initial_scan_issued"),
	)
	for _, ev := range events {
		c.add(ev)
	}
	c.checkScanDone()
}

func (c *Coordinator) handleEvent(ev Event) {
	switch {
	case ev.addsDevice():
		c.add(ev)
	case ev.Action == ActionRemove:
		c.remove(ev.Name)
	}
}

func (c *Coordinator) add(ev Event) {
	if !c.filter.Accepts(ev) {
		return
	}
	name := ev.Name
	if c.registry.FindByName(name) != nil {
		c.logger.Debug("device already registered; event ignored",
			logging.Device(name),
			logging.String("action", string(ev.Action)),
		)
		return
	}
	if entry := c.pending.Find(name); entry != nil {
		if entry.token.Cancelled() {
			replay := ev
			entry.deferred = &replay
			c.logger.Debug("device re-announced while cancelled attempt resolves; deferring",
				logging.Device(name),
				logging.Attempt(entry.attemptID),
			)
		}
		return
	}

	token := NewToken()
	entry := c.pending.Add(name, token)
	path := filepath.Join(c.devDir, name)
	c.logger.Info("modem detected; opening",
		logging.Device(name),
		logging.String("path", path),
		logging.Attempt(entry.attemptID),
		logging.Event("device_open_started"),
	)
	go c.open(name, path, token)
}

func (c *Coordinator) open(name, path string, token *Token) {
	ctx := token.Context()
	if c.openTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.openTimeout)
		defer cancel()
	}
	dev, err := c.driver.Open(ctx, path)
	if err == nil && dev == nil {
		err = fmt.Errorf("driver returned no device for %s", path)
	}
	if err == nil && dev.Name() != name {
		c.release(dev)
		err = fmt.Errorf("driver returned device %q for %s", dev.Name(), path)
		dev = nil
	}
	c.mailbox <- func() { c.resolveOpen(name, token, dev, err) }
}

func (c *Coordinator) resolveOpen(name string, token *Token, dev Device, err error) {
	entry := c.pending.Find(name)
	if entry == nil || entry.token != token {
		panic(fmt.Sprintf("hotplug: open of %s resolved without a matching pending entry", name))
	}
	attrs := []logging.Attr{
		logging.Device(name),
		logging.Attempt(entry.attemptID),
		logging.Duration("elapsed", time.Since(entry.started)),
	}

	switch {
	case err != nil && token.Cancelled() && errors.Is(err, context.Canceled):
		c.logger.Info("modem open abandoned after cancellation",
			logging.Args(append(attrs, logging.Event("device_open_discarded"))...)...)
		if c.attempts != nil {
			c.attempts.OpenDiscarded(name)
		}
	case err != nil:
		logging.WarnWithContext(c.logger, "modem open failed; device ignored until re-plugged", "device_open_failed",
			append(attrs,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check device permissions and that qmi_wwan owns the interface"),
				logging.String(logging.FieldImpact, "modem will not be monitored"),
			)...)
		if c.attempts != nil {
			c.attempts.OpenFailed(name, err)
		}
	case token.Cancelled():
		c.release(dev)
		c.logger.Info("modem opened after cancellation; discarded",
			logging.Args(append(attrs, logging.Event("device_open_discarded"))...)...)
		if c.attempts != nil {
			c.attempts.OpenDiscarded(name)
		}
	default:
		c.registry.Append(dev, entry.attemptID)
		c.logger.Info("modem added",
			logging.Args(append(attrs,
				logging.String("manufacturer", dev.Manufacturer()),
				logging.String("model", dev.Model()),
				logging.String("revision", dev.Revision()),
				logging.Event("device_added"),
			)...)...)
		c.observer.DeviceAdded(dev)
	}

	deferred := entry.deferred
	c.pending.Remove(name)
	c.checkScanDone()
	if deferred != nil && c.state != StateDraining {
		c.add(*deferred)
	}
	c.countDown()
}

func (c *Coordinator) remove(name string) {
	if dev := c.registry.RemoveByName(name); dev != nil {
		c.logger.Info("modem removed",
			logging.Device(name),
			logging.Event("device_removed"),
		)
		c.observer.DeviceRemoved(dev)
		c.release(dev)
		return
	}
	if entry := c.pending.Find(name); entry != nil {
		entry.deferred = nil
		c.pending.Cancel(name)
		c.logger.Info("modem removed while opening; attempt cancelled",
			logging.Device(name),
			logging.Attempt(entry.attemptID),
			logging.Event("device_open_cancelled"),
		)
	}
}

// release closes a device the coordinator no longer tracks. The close runs
// detached; Shutdown waits for it after the loop stops.
func (c *Coordinator) release(dev Device) {
	c.closers.Add(1)
	go func() {
		defer c.closers.Done()
		if err := c.closeDevice(dev); err != nil {
			logging.WarnWithContext(c.logger, "modem close failed", "device_close_failed",
				logging.Device(dev.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the handle is treated as released regardless"),
				logging.String(logging.FieldImpact, "a file descriptor may leak until the process exits"),
			)
		}
	}()
}

func (c *Coordinator) closeDevice(dev Device) error {
	ctx := context.Background()
	if c.closeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.closeTimeout)
		defer cancel()
	}
	return dev.Close(ctx)
}

func (c *Coordinator) beginDrain(reason string) {
	if c.state == StateDraining || c.state == StateStopped {
		return
	}
	c.state = StateDraining
	c.stopFeed()

	names := c.pending.Names()
	devices := c.registry.List()
	c.barrier = newDrainBarrier(len(names) + len(devices))
	c.logger.Info("draining modems",
		logging.String("reason", reason),
		logging.Int("pending", len(names)),
		logging.Int("registered", len(devices)),
		logging.Event("drain_started"),
	)

	for _, name := range names {
		if entry := c.pending.Find(name); entry != nil {
			entry.deferred = nil
		}
		c.pending.Cancel(name)
	}
	for _, dev := range devices {
		go c.drainClose(dev)
	}
	if c.barrier.open() {
		c.finishDrain()
	}
}

func (c *Coordinator) drainClose(dev Device) {
	err := c.closeDevice(dev)
	c.mailbox <- func() {
		name := dev.Name()
		if err != nil {
			logging.WarnWithContext(c.logger, "modem close failed during shutdown", "device_close_failed",
				logging.Device(name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the handle is treated as released regardless"),
				logging.String(logging.FieldImpact, "a file descriptor may leak until the process exits"),
			)
		}
		if c.registry.RemoveByName(name) != nil {
			c.observer.DeviceRemoved(dev)
		}
		c.countDown()
	}
}

func (c *Coordinator) countDown() {
	if c.barrier == nil {
		return
	}
	if c.barrier.release() {
		c.finishDrain()
	}
}

func (c *Coordinator) finishDrain() {
	if c.pending.Len() != 0 || c.registry.Len() != 0 {
		panic(fmt.Sprintf("hotplug: drain released with %d pending and %d registered", c.pending.Len(), c.registry.Len()))
	}
	c.state = StateStopped
	c.logger.Info("modems drained", logging.Event("drain_completed"))
}

func (c *Coordinator) checkScanDone() {
	if !c.scanIssued || c.scanDone || c.state != StateBooting || c.pending.Len() != 0 {
		return
	}
	c.scanDone = true
	c.state = StateSteady
	c.logger.Info("initial scan complete",
		logging.Int("devices", c.registry.Len()),
		logging.Event("initial_scan_done"),
	)
	c.observer.InitialScanDone()
}

func (c *Coordinator) detectionChanged(busy bool) {
	c.logger.Debug("detection busy changed", logging.Bool("busy", busy))
	c.observer.DetectionChanged(busy)
}

func (c *Coordinator) publish() {
	names := c.pending.Names()
	c.status.Store(&Status{
		State:           c.state,
		InitialScanDone: c.scanDone,
		Busy:            len(names) > 0,
		Pending:         names,
		Devices:         c.registry.List(),
		Attempts:        c.registry.Attempts(),
	})
}
