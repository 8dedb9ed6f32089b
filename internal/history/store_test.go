package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"radiomon/internal/history"
	"radiomon/internal/hotplug"
	"radiomon/internal/testsupport"
)

type fakeDevice struct {
	name string
}

func (d fakeDevice) Name() string                { return d.name }
func (d fakeDevice) Path() string                { return "/dev/" + d.name }
func (d fakeDevice) Manufacturer() string        { return "Quectel" }
func (d fakeDevice) Model() string               { return "EG25-G" }
func (d fakeDevice) Revision() string            { return "3.18" }
func (d fakeDevice) Status() hotplug.LockStatus  { return hotplug.LockUnknown }
func (d fakeDevice) Close(context.Context) error { return nil }

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	if store.Path() != cfg.History.Path {
		t.Fatalf("Path = %q, want %q", store.Path(), cfg.History.Path)
	}
	sessions, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected empty history, got %d sessions", len(sessions))
	}

	// Reopening must not reapply migrations.
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := history.OpenPath(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := history.Open(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	added := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := history.DeviceRecord{Name: "cdc-wdm0", Path: "/dev/cdc-wdm0", Manufacturer: "Quectel", Model: "EG25-G", Revision: "3.18"}
	id, err := store.RecordAdded(ctx, "run-1", record, added)
	if err != nil {
		t.Fatalf("RecordAdded: %v", err)
	}
	if id == 0 {
		t.Fatal("expected session id")
	}

	found, err := store.RecordRemoved(ctx, "cdc-wdm0", history.EndRemoved, added.Add(90*time.Second))
	if err != nil || !found {
		t.Fatalf("RecordRemoved = %v, %v", found, err)
	}
	found, err = store.RecordRemoved(ctx, "cdc-wdm0", history.EndRemoved, added.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second RecordRemoved: %v", err)
	}
	if found {
		t.Fatal("expected no open session after removal")
	}

	sessions, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.RunID != "run-1" || got.Device != "cdc-wdm0" || got.Model != "EG25-G" || got.Revision != "3.18" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.Active() || got.EndReason != history.EndRemoved {
		t.Fatalf("expected closed session, got %+v", got)
	}
	if !got.AddedAt.Equal(added) {
		t.Fatalf("AddedAt = %s", got.AddedAt)
	}
	if d := got.Duration(time.Now()); d != 90*time.Second {
		t.Fatalf("Duration = %s", d)
	}
}

func TestSessionsNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, name := range []string{"cdc-wdm0", "cdc-wdm1", "cdc-wdm2"} {
		if _, err := store.RecordAdded(ctx, "run", history.DeviceRecord{Name: name, Path: "/dev/" + name}, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAdded %s: %v", name, err)
		}
	}
	sessions, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 || sessions[0].Device != "cdc-wdm2" || sessions[1].Device != "cdc-wdm1" {
		t.Fatalf("unexpected order %+v", sessions)
	}
	if sessions[0].Manufacturer != "" {
		t.Fatalf("expected empty manufacturer, got %q", sessions[0].Manufacturer)
	}
}

func TestCloseDanglingMarksInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, name := range []string{"cdc-wdm0", "cdc-wdm1"} {
		if _, err := store.RecordAdded(ctx, "old-run", history.DeviceRecord{Name: name, Path: "/dev/" + name}, now); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.RecordRemoved(ctx, "cdc-wdm1", history.EndShutdown, now); err != nil {
		t.Fatal(err)
	}

	closed, err := store.CloseDangling(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("CloseDangling: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}
	sessions, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	reasons := map[string]string{}
	for _, s := range sessions {
		reasons[s.Device] = s.EndReason
	}
	if reasons["cdc-wdm0"] != history.EndInterrupted || reasons["cdc-wdm1"] != history.EndShutdown {
		t.Fatalf("unexpected end reasons %v", reasons)
	}
}

func TestFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := store.RecordFailure(ctx, "run", "cdc-wdm0", false, "permission denied", now); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFailure(ctx, "run", "cdc-wdm1", true, "", now); err != nil {
		t.Fatal(err)
	}
	failures, err := store.Failures(ctx, 10)
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Device != "cdc-wdm1" || !failures[0].Discarded || failures[0].Error != "" {
		t.Fatalf("unexpected discarded row %+v", failures[0])
	}
	if failures[1].Discarded || failures[1].Error != "permission denied" {
		t.Fatalf("unexpected failure row %+v", failures[1])
	}
}

func TestRecorderPersistsNotifications(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	rec := history.NewRecorder(store, "run-7", nil)
	rec.DetectionChanged(true)
	rec.DeviceAdded(fakeDevice{name: "cdc-wdm0"})
	rec.DeviceAdded(fakeDevice{name: "cdc-wdm1"})
	rec.OpenFailed("cdc-wdm2", errors.New("no such device"))
	rec.OpenDiscarded("cdc-wdm3")
	rec.DeviceRemoved(fakeDevice{name: "cdc-wdm0"})
	rec.MarkShutdown()
	rec.DeviceRemoved(fakeDevice{name: "cdc-wdm1"})
	rec.InitialScanDone()
	rec.Close()
	rec.Close()

	// Notifications after Close are ignored.
	rec.DeviceAdded(fakeDevice{name: "cdc-wdm9"})

	ctx := context.Background()
	sessions, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %+v", sessions)
	}
	reasons := map[string]string{}
	for _, s := range sessions {
		if s.RunID != "run-7" || s.Manufacturer != "Quectel" {
			t.Fatalf("unexpected session %+v", s)
		}
		reasons[s.Device] = s.EndReason
	}
	if reasons["cdc-wdm0"] != history.EndRemoved || reasons["cdc-wdm1"] != history.EndShutdown {
		t.Fatalf("unexpected reasons %v", reasons)
	}

	failures, err := store.Failures(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", failures)
	}
	if rec.Dropped() != 0 {
		t.Fatalf("Dropped = %d", rec.Dropped())
	}
}

func TestSessionDurationEdges(t *testing.T) {
	now := time.Now()
	if d := (history.Session{}).Duration(now); d != 0 {
		t.Fatalf("zero session duration = %s", d)
	}
	active := history.Session{AddedAt: now.Add(-time.Minute)}
	if !active.Active() || active.Duration(now) != time.Minute {
		t.Fatalf("active duration = %s", active.Duration(now))
	}
	removed := now.Add(-2 * time.Minute)
	backwards := history.Session{AddedAt: now, RemovedAt: &removed}
	if backwards.Duration(now) != 0 {
		t.Fatal("expected clamped duration")
	}
}
