package notifications_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"radiomon/internal/hotplug"
	"radiomon/internal/notifications"
)

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingService struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (s *recordingService) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, published{event: event, payload: payload})
	return s.err
}

func (s *recordingService) snapshot() []published {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]published(nil), s.events...)
}

type fakeDevice struct {
	name string
}

func (d fakeDevice) Name() string                { return d.name }
func (d fakeDevice) Path() string                { return "/dev/" + d.name }
func (d fakeDevice) Manufacturer() string        { return "Sierra Wireless" }
func (d fakeDevice) Model() string               { return "EM7455" }
func (d fakeDevice) Revision() string            { return "SWI9X30C" }
func (d fakeDevice) Status() hotplug.LockStatus  { return hotplug.LockUnknown }
func (d fakeDevice) Close(context.Context) error { return nil }

func TestNotifierSummarizesInitialScan(t *testing.T) {
	svc := &recordingService{}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{OpenFailures: true})

	n.DetectionChanged(true)
	n.DeviceAdded(fakeDevice{name: "cdc-wdm0"})
	n.DeviceAdded(fakeDevice{name: "cdc-wdm1"})
	n.DetectionChanged(false)
	n.InitialScanDone()
	n.DeviceAdded(fakeDevice{name: "cdc-wdm2"})
	n.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	n.OpenFailed("cdc-wdm3", errors.New("no such device"))
	n.OpenDiscarded("cdc-wdm4")
	n.Close()

	events := svc.snapshot()
	want := []notifications.Event{
		notifications.EventModemsPresent,
		notifications.EventModemAdded,
		notifications.EventModemRemoved,
		notifications.EventOpenFailed,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events)
	}
	for i, event := range want {
		if events[i].event != event {
			t.Fatalf("event %d = %s, want %s", i, events[i].event, event)
		}
	}
	if events[0].payload["count"] != 2 || events[0].payload["devices"] != "cdc-wdm0, cdc-wdm1" {
		t.Fatalf("unexpected summary payload %+v", events[0].payload)
	}
	if events[1].payload["model"] != "EM7455" {
		t.Fatalf("unexpected added payload %+v", events[1].payload)
	}
	if events[3].payload["error"] != "no such device" {
		t.Fatalf("unexpected failure payload %+v", events[3].payload)
	}
}

func TestNotifierForgetsModemRemovedDuringInitialScan(t *testing.T) {
	svc := &recordingService{}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{})

	n.DeviceAdded(fakeDevice{name: "cdc-wdm0"})
	n.DeviceAdded(fakeDevice{name: "cdc-wdm1"})
	n.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	n.InitialScanDone()
	n.Close()

	events := svc.snapshot()
	if len(events) != 1 || events[0].event != notifications.EventModemsPresent {
		t.Fatalf("expected a single summary, got %+v", events)
	}
	if events[0].payload["count"] != 1 || events[0].payload["devices"] != "cdc-wdm1" {
		t.Fatalf("unexpected summary payload %+v", events[0].payload)
	}
}

func TestNotifierSkipsSummaryWhenBootModemsLeft(t *testing.T) {
	svc := &recordingService{}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{})

	n.DeviceAdded(fakeDevice{name: "cdc-wdm0"})
	n.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	n.InitialScanDone()
	n.Close()

	if events := svc.snapshot(); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestNotifierQuietDuringShutdownDrain(t *testing.T) {
	svc := &recordingService{}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{})

	n.InitialScanDone()
	n.OpenFailed("cdc-wdm1", errors.New("timeout"))
	n.MarkShutdown()
	n.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	n.Close()
	n.Close()
	n.DeviceAdded(fakeDevice{name: "cdc-wdm5"})

	if events := svc.snapshot(); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if n.Dropped() != 0 {
		t.Fatalf("Dropped = %d", n.Dropped())
	}
}

func TestNotifierSurvivesDeliveryErrors(t *testing.T) {
	svc := &recordingService{err: errors.New("offline")}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{})
	n.InitialScanDone()
	n.DeviceAdded(fakeDevice{name: "cdc-wdm0"})
	n.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	n.Close()

	if events := svc.snapshot(); len(events) != 2 {
		t.Fatalf("expected both deliveries attempted, got %+v", events)
	}
}

func TestNilNotifierIsInert(t *testing.T) {
	var n *notifications.Notifier
	n.MarkShutdown()
	n.Close()
	if n.Dropped() != 0 {
		t.Fatal("expected zero drops")
	}
	if sent, err := n.SendTest(context.Background()); sent || err != nil {
		t.Fatalf("SendTest = %v, %v", sent, err)
	}
}

func TestSendTestRequiresDeliveryTarget(t *testing.T) {
	disabled := notifications.NewNotifier(notifications.NewService(nil), notifications.NotifierOptions{})
	defer disabled.Close()
	if sent, err := disabled.SendTest(context.Background()); sent || err != nil {
		t.Fatalf("SendTest on noop = %v, %v", sent, err)
	}

	svc := &recordingService{}
	n := notifications.NewNotifier(svc, notifications.NotifierOptions{})
	defer n.Close()
	sent, err := n.SendTest(context.Background())
	if !sent || err != nil {
		t.Fatalf("SendTest = %v, %v", sent, err)
	}
	if events := svc.snapshot(); len(events) != 1 || events[0].event != notifications.EventTest {
		t.Fatalf("unexpected events %+v", events)
	}
}
