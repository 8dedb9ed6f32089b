package daemonctl

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestStopWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "radiomon.sock")
	_, err := Stop(socket, "test", time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("Stop = %v, want ErrDaemonNotRunning", err)
	}
}

func TestWaitForExitWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "radiomon.sock")
	if err := waitForExit(socket, 0, time.Second); err != nil {
		t.Fatalf("waitForExit: %v", err)
	}
	if err := waitForExit(socket, os.Getpid(), time.Second); err != nil {
		t.Fatalf("waitForExit for own pid: %v", err)
	}
}

func TestProcessAlive(t *testing.T) {
	if processAlive(0) || processAlive(os.Getpid()) {
		t.Fatal("zero and own pid should not count as a daemon")
	}
	if !processAlive(1) {
		t.Fatal("expected init to be alive")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if _, err := launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	if _, err := waitForClient(filepath.Join(t.TempDir(), "radiomon.sock"), nil, 50*time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestEnsureStartedReportsEarlyExit(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	socket := filepath.Join(t.TempDir(), "radiomon.sock")
	start := time.Now()
	_, err = EnsureStarted(socket, falseBin, LaunchOptions{}, 10*time.Second)
	if !errors.Is(err, ErrDaemonExited) {
		t.Fatalf("EnsureStarted = %v, want ErrDaemonExited", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("early exit should not wait for the full timeout")
	}
}
