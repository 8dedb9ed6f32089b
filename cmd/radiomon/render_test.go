package main

import (
	"context"
	"errors"
	"net/rpc"
	"strings"
	"testing"
	"time"

	"radiomon/internal/api"
	"radiomon/internal/hotplug"
	"radiomon/internal/ipc"
	"radiomon/internal/preflight"
)

func TestDiffDevices(t *testing.T) {
	a := api.DeviceInfo{Name: "cdc-wdm0"}
	b := api.DeviceInfo{Name: "cdc-wdm1"}
	c := api.DeviceInfo{Name: "cdc-wdm2"}

	changes := diffDevices(nil, []api.DeviceInfo{a, b})
	if len(changes) != 2 || !changes[0].Added || changes[0].Device.Name != "cdc-wdm0" || changes[1].Device.Name != "cdc-wdm1" {
		t.Fatalf("unexpected initial changes %+v", changes)
	}

	changes = diffDevices([]api.DeviceInfo{a, b}, []api.DeviceInfo{b, c})
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", changes)
	}
	if changes[0].Added || changes[0].Device.Name != "cdc-wdm0" {
		t.Fatalf("expected removal first, got %+v", changes[0])
	}
	if !changes[1].Added || changes[1].Device.Name != "cdc-wdm2" {
		t.Fatalf("expected addition second, got %+v", changes[1])
	}

	if changes := diffDevices([]api.DeviceInfo{a}, []api.DeviceInfo{a}); len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestDiffDevicesReportsReplug(t *testing.T) {
	first := api.DeviceInfo{Name: "cdc-wdm0", Path: "/dev/cdc-wdm0", AttemptID: "attempt-1"}
	second := api.DeviceInfo{Name: "cdc-wdm0", Path: "/dev/cdc-wdm0", AttemptID: "attempt-2"}

	changes := diffDevices([]api.DeviceInfo{first}, []api.DeviceInfo{second})
	if len(changes) != 2 {
		t.Fatalf("expected removal and addition, got %+v", changes)
	}
	if changes[0].Added || changes[0].Device.AttemptID != "attempt-1" {
		t.Fatalf("expected old registration removed first, got %+v", changes[0])
	}
	if !changes[1].Added || changes[1].Device.AttemptID != "attempt-2" {
		t.Fatalf("expected new registration added, got %+v", changes[1])
	}
}

func TestFormatChange(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 30, 45, 0, time.Local)
	added := formatChange(at, deviceChange{Added: true, Device: api.DeviceInfo{Name: "cdc-wdm0", Manufacturer: "Quectel", Model: "EG25-G"}})
	if added != "12:30:45 + cdc-wdm0 (Quectel EG25-G)" {
		t.Fatalf("added = %q", added)
	}
	removed := formatChange(at, deviceChange{Device: api.DeviceInfo{Name: "cdc-wdm1"}})
	if removed != "12:30:45 - cdc-wdm1" {
		t.Fatalf("removed = %q", removed)
	}
}

type scriptedLister struct {
	responses [][]api.DeviceInfo
	calls     int
}

func (s *scriptedLister) Devices() (*ipc.DevicesResponse, error) {
	if s.calls >= len(s.responses) {
		return nil, rpc.ErrShutdown
	}
	resp := &ipc.DevicesResponse{Devices: s.responses[s.calls]}
	s.calls++
	return resp, nil
}

func TestWatchDevicesPrintsChangesUntilDaemonStops(t *testing.T) {
	lister := &scriptedLister{responses: [][]api.DeviceInfo{
		{{Name: "cdc-wdm0"}},
		{{Name: "cdc-wdm0"}, {Name: "cdc-wdm1"}},
		{{Name: "cdc-wdm1"}},
	}}
	var out strings.Builder
	if err := watchDevices(context.Background(), &out, lister, time.Millisecond); err != nil {
		t.Fatalf("watchDevices: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", lines)
	}
	for i, want := range []string{"+ cdc-wdm0", "+ cdc-wdm1", "- cdc-wdm0", "daemon stopped"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

type failingLister struct{}

func (failingLister) Devices() (*ipc.DevicesResponse, error) {
	return nil, errors.New("boom")
}

func TestWatchDevicesReturnsUnexpectedErrors(t *testing.T) {
	var out strings.Builder
	if err := watchDevices(context.Background(), &out, failingLister{}, time.Millisecond); err == nil {
		t.Fatal("expected error")
	}
}

func TestClassifyEvents(t *testing.T) {
	events := []hotplug.Event{
		{Action: hotplug.ActionAdd, Subsystem: "usb", Name: "1-1", Driver: "usb"},
		{Action: hotplug.ActionAdd, Subsystem: "usbmisc", Name: "cdc-wdm0", ParentDriver: "qmi_wwan"},
		{Action: hotplug.ActionAdd, Subsystem: "usbmisc", Name: "cdc-wdm1", ParentDriver: "cdc_mbim"},
	}
	managed := classifyEvents(events, hotplug.DefaultFilter(), false)
	if len(managed) != 1 || managed[0].Name != "cdc-wdm0" || managed[0].Driver != "qmi_wwan" || !managed[0].Managed {
		t.Fatalf("unexpected managed results %+v", managed)
	}
	all := classifyEvents(events, hotplug.DefaultFilter(), true)
	if len(all) != 3 || all[0].Managed || all[2].Managed {
		t.Fatalf("unexpected results %+v", all)
	}
	if empty := classifyEvents(nil, hotplug.DefaultFilter(), true); empty == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestTitleLabel(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"shutdown":    "Shutdown",
		"interrupted": "Interrupted",
		"not_ready":   "Not Ready",
		"steady":      "Steady",
	}
	for in, want := range cases {
		if got := titleLabel(in); got != want {
			t.Fatalf("titleLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("State", statusOK, "Steady", false)
	if !strings.Contains(line, "State:") || !strings.HasSuffix(line, "[OK] Steady") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("State", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestResultKind(t *testing.T) {
	if resultKind(preflight.Result{Passed: true}) != statusOK {
		t.Fatal("passed should be OK")
	}
	if resultKind(preflight.Result{Optional: true}) != statusWarn {
		t.Fatal("optional failure should warn")
	}
	if resultKind(preflight.Result{}) != statusError {
		t.Fatal("required failure should error")
	}
}

func TestRenderTablePadsRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, nil)
	if !strings.Contains(out, "x") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}
