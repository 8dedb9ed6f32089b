package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"radiomon/internal/config"
	"radiomon/internal/daemon"
	"radiomon/internal/history"
	"radiomon/internal/hotplug"
	"radiomon/internal/ipc"
	"radiomon/internal/logging"
	"radiomon/internal/metrics"
	"radiomon/internal/modem"
	"radiomon/internal/notifications"
	"radiomon/internal/preflight"
	"radiomon/internal/sysfs"
	"radiomon/internal/udev"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// FileOnly writes logs to the run log file without mirroring them to
	// stdout.
	FileOnly bool

	// Source and Driver replace the netlink monitor and the sysfs-backed
	// modem driver when set.
	Source hotplug.Source
	Driver hotplug.Driver
}

// Run starts the radiomon daemon runtime loop. It returns once a signal or
// an IPC shutdown request has been received and every device has been
// drained.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	sessionID := uuid.NewString()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, time.Now())
	outputs := []string{"stdout", logPath}
	if opts.FileOnly {
		outputs = []string{logPath}
	}
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
		SessionID:   sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := logging.LinkCurrent(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.CurrentLogName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logPreflightSnapshot(signalCtx, logger, cfg)

	var (
		store    *history.Store
		recorder *history.Recorder
	)
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			logger.Error("open history store", logging.Error(err))
			return err
		}
		recorder = history.NewRecorder(store, sessionID, logger)
	}
	closeHistory := func() {
		if recorder != nil {
			recorder.Close()
		}
		_ = store.Close()
	}

	sys := sysfs.New(cfg.Hotplug.SysfsRoot)
	source := opts.Source
	if source == nil {
		monitor, err := udev.New(udev.Options{Mode: cfg.Hotplug.NetlinkMode, SysFS: sys, Logger: logger})
		if err != nil {
			closeHistory()
			return fmt.Errorf("create udev monitor: %w", err)
		}
		source = monitor
	}
	driver := opts.Driver
	if driver == nil {
		driver = modem.NewDriver(sys, logger)
	}

	collector := metrics.NewCollector(nil)
	observers := hotplug.Observers{daemon.NewLogObserver(logger), collector}
	if recorder != nil {
		observers = append(observers, recorder)
	}
	var notifier *notifications.Notifier
	if svc := notifications.NewService(cfg); notifications.Enabled(svc) {
		notifier = notifications.NewNotifier(svc, notifications.NotifierOptions{
			OpenFailures: cfg.Notifications.OpenFailures,
			Logger:       logger,
		})
		defer notifier.Close()
		observers = append(observers, notifier)
	}

	coord, err := hotplug.New(hotplug.Options{
		Source:       source,
		Driver:       driver,
		Filter:       cfg.HotplugFilter(),
		DevDir:       cfg.Hotplug.DevDir,
		Subsystems:   cfg.Hotplug.Subsystems,
		OpenTimeout:  cfg.OpenTimeout(),
		CloseTimeout: cfg.CloseTimeout(),
		Observer:     observers,
		Logger:       logger,
	})
	if err != nil {
		closeHistory()
		return fmt.Errorf("create coordinator: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		Coordinator: coord,
		Store:       store,
		Recorder:    recorder,
		Notifier:    notifier,
		Logger:      logger,
		SessionID:   sessionID,
	})
	if err != nil {
		closeHistory()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if recorder != nil {
			recorder.Close()
		}
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logging.ErrorWithContext(logger, "another radiomon daemon holds the lock", "daemon_already_running",
				logging.String("lock", cfg.LockPath()),
				logging.String(logging.FieldErrorHint, "run radiomon stop or remove the stale lock"),
			)
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.Socket, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	metricsServer := metrics.NewServer(cfg.Metrics.Bind, collector.Gatherer(), coord.InitialScanDone, logger)
	if err := metricsServer.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "metrics endpoint unavailable", "metrics_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "metrics and health checks will not be served"),
			logging.String(logging.FieldErrorHint, "check metrics.bind for a port conflict"),
		)
		metricsServer = nil
	}
	defer metricsServer.Stop()

	runCtx, stopRun := context.WithCancel(signalCtx)
	defer stopRun()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Info("radiomon daemon shutting down", logging.String("reason", "signal"))
		case <-d.ShutdownRequested():
			logger.Info("radiomon daemon shutting down", logging.String("reason", "shutdown request"))
			stopRun()
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		d.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if dropped := recorderDropped(recorder); dropped > 0 {
		logging.WarnWithContext(logger, "history records were dropped", "history_records_dropped",
			logging.Int64("dropped", dropped),
			logging.String(logging.FieldImpact, "session history is incomplete for this run"),
		)
	}
	return nil
}

func recorderDropped(r *history.Recorder) int64 {
	if r == nil {
		return 0
	}
	return r.Dropped()
}

func logPreflightSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.Event("preflight_snapshot"),
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		attrs := []logging.Attr{
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Bool("optional", result.Optional),
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_snapshot", attrs...)
	}
}
