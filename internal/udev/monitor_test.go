package udev

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"radiomon/internal/hotplug"
	"radiomon/internal/sysfs"
)

const (
	ifaceDevPath = "/devices/pci0000:00/0000:00:14.0/usb1/1-1/1-1:1.4"
	wdmDevPath   = ifaceDevPath + "/usbmisc/cdc-wdm0"
	diskDevPath  = "/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/host0/target0:0:0/0:0:0:0/block/sda"
)

func fakeSysfs(t *testing.T) sysfs.FS {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{wdmDevPath, diskDevPath} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, ifaceDevPath, "uevent"), []byte("DRIVER=qmi_wwan\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../../../../bus/usb/drivers/qmi_wwan", filepath.Join(root, ifaceDevPath, "driver")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../../../../../../class/usbmisc", filepath.Join(root, wdmDevPath, "subsystem")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../../../../../../class/block", filepath.Join(root, diskDevPath, "subsystem")); err != nil {
		t.Fatal(err)
	}
	return sysfs.New(root)
}

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := New(Options{SysFS: fakeSysfs(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestParseMode(t *testing.T) {
	if mode, err := ParseMode(""); err != nil || mode != netlink.UdevEvent {
		t.Fatalf("ParseMode(\"\") = %v, %v", mode, err)
	}
	if mode, err := ParseMode("Kernel"); err != nil || mode != netlink.KernelEvent {
		t.Fatalf("ParseMode(Kernel) = %v, %v", mode, err)
	}
	if _, err := ParseMode("hal"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := New(Options{Mode: "hal"}); err == nil {
		t.Fatal("expected New to reject unknown mode")
	}
}

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()
	for _, subsystem := range []string{"usb", "usbmisc"} {
		ev := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": subsystem}}
		if !matcher.Evaluate(ev) {
			t.Errorf("expected matcher to accept subsystem %s", subsystem)
		}
	}
	remove := netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "usbmisc"}}
	if !matcher.Evaluate(remove) {
		t.Error("expected matcher to accept remove events")
	}
	block := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}
	if matcher.Evaluate(block) {
		t.Error("expected matcher to reject block subsystem")
	}
}

func TestTranslateResolvesParentDriver(t *testing.T) {
	m := newTestMonitor(t)

	ev, ok := m.translate(netlink.UEvent{
		Action: netlink.ADD,
		KObj:   wdmDevPath,
		Env: map[string]string{
			"DEVPATH":   wdmDevPath,
			"SUBSYSTEM": "usbmisc",
			"DEVNAME":   "cdc-wdm0",
		},
	})
	if !ok {
		t.Fatal("expected event")
	}
	want := hotplug.Event{Action: hotplug.ActionAdd, Subsystem: "usbmisc", Name: "cdc-wdm0", ParentDriver: "qmi_wwan"}
	if ev != want {
		t.Fatalf("translate = %+v, want %+v", ev, want)
	}
	if !hotplug.DefaultFilter().Accepts(ev) {
		t.Fatal("expected translated event to pass the default filter")
	}
}

func TestTranslateRemoveSkipsSysfs(t *testing.T) {
	m := newTestMonitor(t)
	ev, ok := m.translate(netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"DEVPATH": wdmDevPath, "SUBSYSTEM": "usbmisc"},
	})
	if !ok {
		t.Fatal("expected event")
	}
	if ev.Action != hotplug.ActionRemove || ev.Name != "cdc-wdm0" || ev.ParentDriver != "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTranslateDropsEventsWithoutPath(t *testing.T) {
	m := newTestMonitor(t)
	if _, ok := m.translate(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}}); ok {
		t.Fatal("expected event without devpath to be dropped")
	}
}

func TestExistingEventsGroupsBySubsystem(t *testing.T) {
	m := newTestMonitor(t)
	root := m.sys.Root
	devices := []crawler.Device{
		{KObj: filepath.Join(root, wdmDevPath), Env: map[string]string{"DEVNAME": "cdc-wdm0"}},
		{KObj: "/sys" + diskDevPath, Env: map[string]string{"DEVNAME": "sda"}},
		{KObj: "/sys/devices/pci0000:00/0000:00:14.0/usb1/1-1", Env: map[string]string{"SUBSYSTEM": "usb", "DRIVER": "usb", "DEVNAME": "bus/usb/001/002"}},
	}

	events := m.existingEvents(devices, []string{"usb", "usbmisc"})
	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2", events)
	}
	if events[0].Subsystem != "usb" || events[0].Name != "1-1" || events[0].Driver != "usb" {
		t.Fatalf("first event = %+v", events[0])
	}
	want := hotplug.Event{Action: hotplug.ActionAdd, Subsystem: "usbmisc", Name: "cdc-wdm0", ParentDriver: "qmi_wwan"}
	if events[1] != want {
		t.Fatalf("second event = %+v, want %+v", events[1], want)
	}
}

func TestCollectDrainsErrorsUntilQueueCloses(t *testing.T) {
	m := newTestMonitor(t)
	queue := make(chan crawler.Device)
	errs := make(chan error)
	go func() {
		errs <- errors.New("permission denied")
		queue <- crawler.Device{KObj: "/sys/devices/a"}
		errs <- errors.New("permission denied")
		queue <- crawler.Device{KObj: "/sys/devices/b"}
		close(queue)
	}()

	devices, err := m.collect(context.Background(), make(chan struct{}), queue, errs)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
}

func TestCollectHonoursContext(t *testing.T) {
	m := newTestMonitor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	quit := make(chan struct{})

	_, err := m.collect(ctx, quit, make(chan crawler.Device), make(chan error))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("collect error = %v, want deadline exceeded", err)
	}
	select {
	case <-quit:
	default:
		t.Fatal("expected quit closed on cancellation")
	}
}

func TestRunningNilSafe(t *testing.T) {
	var m *Monitor
	if m.Running() {
		t.Fatal("nil monitor should not be running")
	}
}
