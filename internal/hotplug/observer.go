package hotplug

// Observer receives coordinator notifications. Methods run on the coordinator
// loop and must not block.
type Observer interface {
	// DetectionChanged is edge-triggered: it fires when the set of in-flight
	// opens becomes non-empty or becomes empty.
	DetectionChanged(busy bool)
	// InitialScanDone fires at most once per coordinator.
	InitialScanDone()
	DeviceAdded(dev Device)
	DeviceRemoved(dev Device)
}

// AttemptObserver is optionally implemented by observers that also want to
// hear about open attempts that produced no device.
type AttemptObserver interface {
	OpenFailed(name string, err error)
	OpenDiscarded(name string)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) DetectionChanged(bool) {}
func (NopObserver) InitialScanDone()      {}
func (NopObserver) DeviceAdded(Device)    {}
func (NopObserver) DeviceRemoved(Device)  {}

// Observers fans notifications out to each member in order.
type Observers []Observer

func (o Observers) DetectionChanged(busy bool) {
	for _, obs := range o {
		obs.DetectionChanged(busy)
	}
}

func (o Observers) InitialScanDone() {
	for _, obs := range o {
		obs.InitialScanDone()
	}
}

func (o Observers) DeviceAdded(dev Device) {
	for _, obs := range o {
		obs.DeviceAdded(dev)
	}
}

func (o Observers) DeviceRemoved(dev Device) {
	for _, obs := range o {
		obs.DeviceRemoved(dev)
	}
}

func (o Observers) OpenFailed(name string, err error) {
	for _, obs := range o {
		if ao, ok := obs.(AttemptObserver); ok {
			ao.OpenFailed(name, err)
		}
	}
}

func (o Observers) OpenDiscarded(name string) {
	for _, obs := range o {
		if ao, ok := obs.(AttemptObserver); ok {
			ao.OpenDiscarded(name)
		}
	}
}
