package daemon

import (
	"log/slog"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
)

// LogObserver writes coordinator notifications to the daemon log.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an observer that logs under the "devices" component.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logging.NewComponentLogger(logger, "devices")}
}

func (o *LogObserver) DetectionChanged(busy bool) {
	o.logger.Debug("detection activity changed", logging.Bool("busy", busy))
}

func (o *LogObserver) InitialScanDone() {
	o.logger.Info("initial device scan complete", logging.Event("initial_scan_done"))
}

func (o *LogObserver) DeviceAdded(dev hotplug.Device) {
	o.logger.Info("modem added",
		logging.Device(dev.Name()),
		logging.Event("device_added"),
		logging.String("path", dev.Path()),
		logging.String("manufacturer", dev.Manufacturer()),
		logging.String("model", dev.Model()),
		logging.String("revision", dev.Revision()),
		logging.String("sim", dev.Status().String()),
	)
}

func (o *LogObserver) DeviceRemoved(dev hotplug.Device) {
	o.logger.Info("modem removed",
		logging.Device(dev.Name()),
		logging.Event("device_removed"),
	)
}

func (o *LogObserver) OpenFailed(name string, err error) {
	o.logger.Debug("open attempt failed", logging.Device(name), logging.Error(err))
}

func (o *LogObserver) OpenDiscarded(name string) {
	o.logger.Debug("open attempt discarded", logging.Device(name))
}

var (
	_ hotplug.Observer        = (*LogObserver)(nil)
	_ hotplug.AttemptObserver = (*LogObserver)(nil)
)
