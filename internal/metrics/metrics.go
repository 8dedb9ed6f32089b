package metrics

import (
	"errors"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"radiomon/internal/hotplug"
)

// Event label values for radiomon_device_events_total.
const (
	EventAdded     = "added"
	EventRemoved   = "removed"
	EventFailed    = "failed"
	EventDiscarded = "discarded"
)

// Collector exports coordinator notifications as Prometheus metrics.
type Collector struct {
	gatherer prom.Gatherer

	devices       prom.Gauge
	busy          prom.Gauge
	scanDone      prom.Gauge
	events        *prom.CounterVec
	openFailures  prom.Counter
	openDiscarded prom.Counter
}

// NewCollector registers radiomon metrics on reg. A nil reg gets a private
// registry that also carries the Go and process collectors.
func NewCollector(reg prom.Registerer) *Collector {
	var gatherer prom.Gatherer
	if reg == nil {
		private := prom.NewRegistry()
		registerDefault(private, collectors.NewGoCollector())
		registerDefault(private, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = private
		gatherer = private
	} else if g, ok := reg.(prom.Gatherer); ok {
		gatherer = g
	}

	factory := promauto.With(reg)
	return &Collector{
		gatherer: gatherer,
		devices: factory.NewGauge(prom.GaugeOpts{
			Name: "radiomon_devices",
			Help: "Devices currently registered (Gauge).",
		}),
		busy: factory.NewGauge(prom.GaugeOpts{
			Name: "radiomon_detection_busy",
			Help: "Open attempts in flight: 1=busy, 0=idle (Gauge).",
		}),
		scanDone: factory.NewGauge(prom.GaugeOpts{
			Name: "radiomon_initial_scan_done",
			Help: "Initial enumeration finished: 1=done, 0=booting (Gauge).",
		}),
		events: factory.NewCounterVec(prom.CounterOpts{
			Name: "radiomon_device_events_total",
			Help: "Device lifecycle events (Counter). event=added|removed|failed|discarded.",
		}, []string{"event"}),
		openFailures: factory.NewCounter(prom.CounterOpts{
			Name: "radiomon_open_failures_total",
			Help: "Open attempts that failed (Counter).",
		}),
		openDiscarded: factory.NewCounter(prom.CounterOpts{
			Name: "radiomon_open_discarded_total",
			Help: "Open attempts discarded after cancellation (Counter).",
		}),
	}
}

// registerDefault registers c, tolerating a collector that is already
// present. Any other error panics, matching promauto.
func registerDefault(reg prom.Registerer, c prom.Collector) {
	err := reg.Register(c)
	if err == nil {
		return
	}
	var are prom.AlreadyRegisteredError
	if errors.As(err, &are) {
		return
	}
	panic(err)
}

// Gatherer returns the registry backing the collector, or nil when the
// caller's registerer cannot be gathered.
func (c *Collector) Gatherer() prom.Gatherer {
	return c.gatherer
}

func (c *Collector) DetectionChanged(busy bool) {
	if busy {
		c.busy.Set(1)
		return
	}
	c.busy.Set(0)
}

func (c *Collector) InitialScanDone() {
	c.scanDone.Set(1)
}

func (c *Collector) DeviceAdded(hotplug.Device) {
	c.devices.Inc()
	c.events.WithLabelValues(EventAdded).Inc()
}

func (c *Collector) DeviceRemoved(hotplug.Device) {
	c.devices.Dec()
	c.events.WithLabelValues(EventRemoved).Inc()
}

func (c *Collector) OpenFailed(string, error) {
	c.openFailures.Inc()
	c.events.WithLabelValues(EventFailed).Inc()
}

func (c *Collector) OpenDiscarded(string) {
	c.openDiscarded.Inc()
	c.events.WithLabelValues(EventDiscarded).Inc()
}

var (
	_ hotplug.Observer        = (*Collector)(nil)
	_ hotplug.AttemptObserver = (*Collector)(nil)
)
