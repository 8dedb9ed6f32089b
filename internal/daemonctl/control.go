package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"radiomon/internal/ipc"
)

const pollInterval = 100 * time.Millisecond

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = ipc.ErrDaemonNotRunning

// ErrDaemonExited is returned when a launched daemon exits before it starts
// answering on its socket.
var ErrDaemonExited = errors.New("daemon exited during startup")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	Acknowledged bool
	PID          int
}

// launched is a daemon process started by this CLI invocation. exited is
// closed with the wait result once the process ends.
type launched struct {
	pid    int
	exited chan error
}

// launch starts radiomond in its own session with stdio detached, so it
// outlives the terminal that ran radiomon start.
func launch(executablePath string, opts LaunchOptions) (*launched, error) {
	if strings.TrimSpace(executablePath) == "" {
		return nil, fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	proc := exec.Command(executablePath, args...)
	proc.Stdin = devNull
	proc.Stdout = devNull
	proc.Stderr = devNull
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("launch daemon: %w", err)
	}

	l := &launched{pid: proc.Process.Pid, exited: make(chan error, 1)}
	go func() {
		l.exited <- proc.Wait()
		close(l.exited)
	}()
	return l, nil
}

// waitForClient dials the socket until it answers, the timeout passes, or
// the launched process exits.
func waitForClient(socketPath string, proc *launched, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var exited <-chan error
	if proc != nil {
		exited = proc.exited
	}
	var lastErr error
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("daemon failed to start within %s: %w", timeout, lastErr)
		}
		select {
		case waitErr := <-exited:
			if waitErr == nil {
				waitErr = errors.New("exit status 0")
			}
			return nil, fmt.Errorf("%w (pid %d): %v; see radiomon logs", ErrDaemonExited, proc.pid, waitErr)
		case <-time.After(pollInterval):
		}
	}
}

// EnsureStarted launches the daemon unless one already answers on the socket.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	state := StartStateAlreadyRunning
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if !ipc.IsUnavailable(err) {
			return StartResult{}, err
		}
		proc, launchErr := launch(executablePath, opts)
		if launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = waitForClient(socketPath, proc, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		state = StartStateStarted
	}
	defer client.Close()

	result := StartResult{State: state}
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.Status.PID
	}
	return result, nil
}

// Stop requests a drain and waits until the socket stops answering and the
// daemon process has exited. Draining closes every modem, so this can take
// up to the configured close timeout per device.
func Stop(socketPath, reason string, timeout time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if ipc.IsUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	resp, err := client.Shutdown(reason)
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{Acknowledged: resp.Accepted, PID: resp.PID}
	if err := waitForExit(socketPath, resp.PID, timeout); err != nil {
		return result, err
	}
	return result, nil
}

func waitForExit(socketPath string, pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if !socketAnswers(socketPath) && !processAlive(pid) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("daemon did not stop within %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}

func socketAnswers(socketPath string) bool {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// processAlive probes pid with signal 0. A pid of this process never counts,
// which keeps in-process daemons from blocking Stop.
func processAlive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
