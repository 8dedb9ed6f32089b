package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"radiomon/internal/config"
	"radiomon/internal/history"
	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
	"radiomon/internal/notifications"
)

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another radiomon daemon instance is already running")

// Daemon wraps the hotplug coordinator with single-instance locking and the
// control surface used by the IPC server.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	coord     *hotplug.Coordinator
	store     *history.Store
	recorder  *history.Recorder
	notifier  *notifications.Notifier
	sessionID string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]

	shutdownOnce sync.Once
	shutdownReq  chan struct{}
	stopOnce     sync.Once
}

// Options wires the daemon's collaborators. Store, Recorder and Notifier are
// optional.
type Options struct {
	Config      *config.Config
	Coordinator *hotplug.Coordinator
	Store       *history.Store
	Recorder    *history.Recorder
	Notifier    *notifications.Notifier
	Logger      *slog.Logger
	SessionID   string
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	SessionID   string
	StartedAt   time.Time
	LockPath    string
	SocketPath  string
	HistoryPath string
	Hotplug     hotplug.Status
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Coordinator == nil {
		return nil, errors.New("daemon requires config and coordinator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := opts.Config.LockPath()
	return &Daemon{
		cfg:         opts.Config,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		coord:       opts.Coordinator,
		store:       opts.Store,
		recorder:    opts.Recorder,
		notifier:    opts.Notifier,
		sessionID:   opts.SessionID,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
		shutdownReq: make(chan struct{}),
	}, nil
}

// Start acquires the daemon lock and starts the coordinator. The coordinator
// keeps running after ctx is cancelled; only Stop drains it.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(d.cfg.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if d.store != nil {
		closed, err := d.store.CloseDangling(ctx, time.Now())
		if err != nil {
			logging.WarnWithContext(d.logger, "failed to close dangling history sessions", "history_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on history.path"),
			)
		} else if closed > 0 {
			d.logger.Info("closed sessions left open by previous run", logging.Int64("sessions", closed))
		}
	}

	if err := d.coord.Start(context.WithoutCancel(ctx)); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start coordinator: %w", err)
	}

	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("radiomon daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the coordinator, flushes history and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopOnce.Do(func() {
		if d.recorder != nil {
			d.recorder.MarkShutdown()
		}
		d.notifier.MarkShutdown()
		d.logger.Info("draining devices")
		d.coord.Shutdown()
		if d.recorder != nil {
			d.recorder.Close()
		}
		d.notifier.Close()
		if err := d.lock.Unlock(); err != nil {
			logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
			)
		}
		d.running.Store(false)
		d.logger.Info("radiomon daemon stopped")
	})
}

// Close stops the daemon and closes the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RequestShutdown asks the owner of the daemon to stop it. It is safe to
// call more than once.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() {
		d.logger.Info("shutdown requested")
		close(d.shutdownReq)
	})
}

// ShutdownRequested is closed once RequestShutdown has been called.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdownReq
}

// Devices returns the registered devices in registration order.
func (d *Daemon) Devices() []hotplug.Device {
	return d.coord.Devices()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		SessionID:  d.sessionID,
		LockPath:   d.lockPath,
		SocketPath: d.cfg.Paths.Socket,
		Hotplug:    d.coord.Status(),
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = *started
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}
	return status
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, error) {
	sent, err := d.notifier.SendTest(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "test notification failed", "notification_test_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
		return false, err
	}
	return sent, nil
}
