package notifications

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
)

const (
	notifierQueueSize = 64
	publishTimeout    = 30 * time.Second
)

type outgoing struct {
	event   Event
	payload Payload
}

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	// OpenFailures also announces open attempts that failed.
	OpenFailures bool
	Logger       *slog.Logger
}

// Notifier publishes coordinator notifications through a Service. A nil
// *Notifier is valid and does nothing.
type Notifier struct {
	svc          Service
	logger       *slog.Logger
	openFailures bool

	mu     sync.Mutex
	closed bool
	queue  chan outgoing
	done   chan struct{}

	// boot holds devices registered before the initial scan finished. It is
	// only touched from the coordinator loop.
	boot     []string
	scanDone atomic.Bool
	shutdown atomic.Bool
	dropped  atomic.Int64
}

// NewNotifier starts the delivery worker for svc.
func NewNotifier(svc Service, opts NotifierOptions) *Notifier {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if svc == nil {
		svc = noopService{}
	}
	n := &Notifier{
		svc:          svc,
		logger:       logging.NewComponentLogger(logger, "notifications"),
		openFailures: opts.OpenFailures,
		queue:        make(chan outgoing, notifierQueueSize),
		done:         make(chan struct{}),
	}
	go n.work()
	return n
}

// MarkShutdown suppresses removal notices for the drain that follows.
func (n *Notifier) MarkShutdown() {
	if n == nil {
		return
	}
	n.shutdown.Store(true)
}

// Dropped returns how many notifications were lost to a full queue.
func (n *Notifier) Dropped() int64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}

// SendTest publishes a test message directly, bypassing the queue. It
// reports false when no delivery target is configured.
func (n *Notifier) SendTest(ctx context.Context) (bool, error) {
	if n == nil || !Enabled(n.svc) {
		return false, nil
	}
	if err := n.svc.Publish(ctx, EventTest, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Notifier) DetectionChanged(bool) {}

func (n *Notifier) InitialScanDone() {
	n.scanDone.Store(true)
	if len(n.boot) == 0 {
		return
	}
	names := n.boot
	n.boot = nil
	n.enqueue(EventModemsPresent, Payload{
		"count":   len(names),
		"devices": strings.Join(names, ", "),
	})
}

func (n *Notifier) DeviceAdded(dev hotplug.Device) {
	if !n.scanDone.Load() {
		n.boot = append(n.boot, dev.Name())
		return
	}
	n.enqueue(EventModemAdded, Payload{
		"device":       dev.Name(),
		"manufacturer": dev.Manufacturer(),
		"model":        dev.Model(),
		"revision":     dev.Revision(),
	})
}

func (n *Notifier) DeviceRemoved(dev hotplug.Device) {
	if n.shutdown.Load() {
		return
	}
	if !n.scanDone.Load() {
		n.boot = slices.DeleteFunc(n.boot, func(name string) bool { return name == dev.Name() })
		return
	}
	n.enqueue(EventModemRemoved, Payload{"device": dev.Name()})
}

func (n *Notifier) OpenFailed(name string, err error) {
	if !n.openFailures {
		return
	}
	payload := Payload{"device": name}
	if err != nil {
		payload["error"] = err.Error()
	}
	n.enqueue(EventOpenFailed, payload)
}

func (n *Notifier) OpenDiscarded(string) {}

// Close delivers queued notifications and stops the worker.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) enqueue(event Event, payload Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- outgoing{event: event, payload: payload}:
	default:
		n.dropped.Add(1)
		logging.WarnWithContext(n.logger, "notification queue full; message dropped", "notification_dropped",
			logging.String("event", string(event)),
		)
	}
}

func (n *Notifier) work() {
	defer close(n.done)
	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := n.svc.Publish(ctx, msg.event, msg.payload)
		cancel()
		if err != nil {
			logging.WarnWithContext(n.logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(msg.event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			)
		}
	}
}
