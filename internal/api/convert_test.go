package api

import (
	"testing"
	"time"

	"radiomon/internal/daemon"
	"radiomon/internal/history"
	"radiomon/internal/hotplug"
	"radiomon/internal/testsupport"
)

func TestFromDevice(t *testing.T) {
	dev := &testsupport.StubDevice{NameValue: "cdc-wdm0", PathValue: "/dev/cdc-wdm0", Maker: "Quectel", ModelValue: "EG25-G", Rev: "3.18"}
	info := FromDevice(dev)
	if info.Name != "cdc-wdm0" || info.Path != "/dev/cdc-wdm0" || info.Manufacturer != "Quectel" || info.Model != "EG25-G" || info.Revision != "3.18" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.SIM != "unknown" {
		t.Fatalf("SIM = %q", info.SIM)
	}
	if (FromDevice(nil) != DeviceInfo{}) {
		t.Fatal("expected zero info for nil device")
	}
	if got := FromDevices(nil); got == nil || len(got) != 0 {
		t.Fatalf("FromDevices(nil) = %#v", got)
	}
}

func TestFromDaemonStatus(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("x", 3600))
	status := daemon.Status{
		Running:   true,
		PID:       42,
		SessionID: "abc",
		StartedAt: started,
		LockPath:  "/state/radiomon.lock",
		Hotplug: hotplug.Status{
			State:           hotplug.StateSteady,
			InitialScanDone: true,
			Devices:         []hotplug.Device{&testsupport.StubDevice{NameValue: "cdc-wdm1"}},
			Attempts:        map[string]string{"cdc-wdm1": "attempt-1"},
		},
	}
	dto := FromDaemonStatus(status)
	if !dto.Running || dto.PID != 42 || dto.State != "steady" || !dto.InitialScanDone {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.StartedAt != "2026-01-02T02:04:05.006Z" {
		t.Fatalf("StartedAt = %q", dto.StartedAt)
	}
	if dto.Pending == nil || len(dto.Pending) != 0 {
		t.Fatalf("Pending = %#v", dto.Pending)
	}
	if len(dto.Devices) != 1 || dto.Devices[0].Name != "cdc-wdm1" || dto.Devices[0].AttemptID != "attempt-1" {
		t.Fatalf("Devices = %+v", dto.Devices)
	}
	parsed, ok := ParseTime(dto.StartedAt)
	if !ok || !parsed.Equal(started) {
		t.Fatalf("ParseTime = %s %v", parsed, ok)
	}
	if _, ok := ParseTime(""); ok {
		t.Fatal("expected empty timestamp to fail")
	}
	if FromDaemonStatus(daemon.Status{}).StartedAt != "" {
		t.Fatal("expected zero start time to be omitted")
	}
}

func TestFromSessionAndFailure(t *testing.T) {
	added := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	removed := added.Add(5 * time.Minute)
	info := FromSession(history.Session{ID: 3, Device: "cdc-wdm0", AddedAt: added, RemovedAt: &removed, EndReason: history.EndRemoved}, time.Now())
	if info.DurationSec != 300 || info.RemovedAt == "" || info.EndReason != "removed" {
		t.Fatalf("unexpected session %+v", info)
	}
	active := FromSession(history.Session{AddedAt: added}, added.Add(time.Minute))
	if active.RemovedAt != "" || active.DurationSec != 60 {
		t.Fatalf("unexpected active session %+v", active)
	}

	failure := FromFailure(history.Failure{ID: 1, Device: "cdc-wdm2", Discarded: true, OccurredAt: added})
	if !failure.Discarded || failure.OccurredAt != "2026-05-01T12:00:00.000Z" {
		t.Fatalf("unexpected failure %+v", failure)
	}
}
