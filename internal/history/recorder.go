package history

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
)

const recorderQueueSize = 256

type job func(ctx context.Context) error

// Recorder writes coordinator notifications to the store. Notifications are
// queued and persisted on a worker goroutine so the coordinator loop never
// waits on SQLite.
type Recorder struct {
	store  *Store
	runID  string
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	jobs   chan job
	done   chan struct{}

	shutdown atomic.Bool
	dropped  atomic.Int64
}

// NewRecorder starts the persistence worker for runID.
func NewRecorder(store *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Recorder{
		store:  store,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "history"),
		now:    time.Now,
		jobs:   make(chan job, recorderQueueSize),
		done:   make(chan struct{}),
	}
	go r.work()
	return r
}

// MarkShutdown records subsequent removals as shutdown closes rather than
// hot-unplugs.
func (r *Recorder) MarkShutdown() {
	r.shutdown.Store(true)
}

// Dropped returns how many notifications were lost to a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) DetectionChanged(bool) {}

func (r *Recorder) InitialScanDone() {}

func (r *Recorder) DeviceAdded(dev hotplug.Device) {
	record := RecordFromDevice(dev)
	at := r.now()
	r.enqueue(record.Name, func(ctx context.Context) error {
		_, err := r.store.RecordAdded(ctx, r.runID, record, at)
		return err
	})
}

func (r *Recorder) DeviceRemoved(dev hotplug.Device) {
	name := dev.Name()
	reason := EndRemoved
	if r.shutdown.Load() {
		reason = EndShutdown
	}
	at := r.now()
	r.enqueue(name, func(ctx context.Context) error {
		found, err := r.store.RecordRemoved(ctx, name, reason, at)
		if err == nil && !found {
			r.logger.Debug("no open session for removed device", logging.Device(name))
		}
		return err
	})
}

func (r *Recorder) OpenFailed(name string, err error) {
	cause := ""
	if err != nil {
		cause = err.Error()
	}
	at := r.now()
	r.enqueue(name, func(ctx context.Context) error {
		return r.store.RecordFailure(ctx, r.runID, name, false, cause, at)
	})
}

func (r *Recorder) OpenDiscarded(name string) {
	at := r.now()
	r.enqueue(name, func(ctx context.Context) error {
		return r.store.RecordFailure(ctx, r.runID, name, true, "", at)
	})
}

// Close flushes queued notifications and stops the worker. The store stays
// open.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) enqueue(device string, fn job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.jobs <- fn:
	default:
		r.dropped.Add(1)
		logging.WarnWithContext(r.logger, "history queue full; notification dropped", "history_dropped",
			logging.Device(device),
			logging.String(logging.FieldImpact, "device session history is incomplete"),
		)
	}
}

func (r *Recorder) work() {
	defer close(r.done)
	for fn := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := fn(ctx)
		cancel()
		if err != nil {
			logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on history.path"),
			)
		}
	}
}
