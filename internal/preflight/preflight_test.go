package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"radiomon/internal/sysfs"
	"radiomon/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if result := CheckDirectoryAccess("test", "  "); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckSysfs(t *testing.T) {
	root := t.TempDir()
	if result := CheckSysfs(sysfs.New(root)); result.Passed {
		t.Fatal("expected failure without class directory")
	}

	testsupport.AddFakeModem(t, root, testsupport.FakeModem{Name: "cdc-wdm0"})
	result := CheckSysfs(sysfs.New(root))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if want := root + " (1 usbmisc nodes)"; result.Detail != want {
		t.Fatalf("Detail = %q, want %q", result.Detail, want)
	}
}

func TestCheckDriverLoaded(t *testing.T) {
	root := t.TempDir()
	missing := CheckDriverLoaded(sysfs.New(root), "")
	if missing.Passed || !missing.Optional {
		t.Fatalf("expected optional failure, got %+v", missing)
	}
	if missing.Name != "Driver qmi_wwan" {
		t.Fatalf("Name = %q", missing.Name)
	}

	testsupport.AddFakeModem(t, root, testsupport.FakeModem{Name: "cdc-wdm0"})
	if loaded := CheckDriverLoaded(sysfs.New(root), "qmi_wwan"); !loaded.Passed {
		t.Fatalf("expected driver loaded, got %+v", loaded)
	}
}

func TestCheckNetlink_BadMode(t *testing.T) {
	if result := CheckNetlink(context.Background(), "bogus"); result.Passed {
		t.Fatal("expected failure for unsupported mode")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirectories())
	results := RunAll(context.Background(), cfg)

	names := map[string]Result{}
	for _, r := range results {
		names[r.Name] = r
	}
	for _, want := range []string{"State directory", "Log directory", "History directory", "Device directory", "Sysfs", "Driver qmi_wwan", "Uevent netlink"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("missing check %q in %v", want, results)
		}
	}
	for _, name := range []string{"State directory", "Log directory", "Device directory"} {
		if !names[name].Passed {
			t.Fatalf("%s failed: %s", name, names[name].Detail)
		}
	}
}

func TestRunAll_SkipsHistoryWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled(), testsupport.WithEnsuredDirectories())
	for _, r := range RunAll(context.Background(), cfg) {
		if r.Name == "History directory" {
			t.Fatal("history check should be skipped when disabled")
		}
	}
}

func TestPassed(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Optional: true},
	}
	if !Passed(results) {
		t.Fatal("optional failures must not fail the run")
	}
	results = append(results, Result{Name: "c"})
	if Passed(results) {
		t.Fatal("required failure must fail the run")
	}
}
