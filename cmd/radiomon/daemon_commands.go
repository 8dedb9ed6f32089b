package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"radiomon/internal/api"
	"radiomon/internal/daemonctl"
	"radiomon/internal/ipc"
)

const daemonBinary = "radiomond"

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startWait time.Duration
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the radiomon daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), startWait)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().DurationVar(&startWait, "wait", 10*time.Second, "How long to wait for the daemon socket")

	var stopWait time.Duration
	var stopReason string
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Drain all modems and stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), stopReason, stopWait)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if !result.Acknowledged && err == nil {
				fmt.Fprintln(stdout, "Stop request sent")
				return nil
			}
			if err != nil {
				return err
			}
			if result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&stopWait, "wait", 30*time.Second, "How long to wait for the drain to finish")
	stopCmd.Flags().StringVar(&stopReason, "reason", "cli stop", "Reason recorded in the daemon log")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and device status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			var status *api.DaemonStatus
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				status = &resp.Status
				return nil
			})
			if err != nil {
				if !ipc.IsUnavailable(err) {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, api.DaemonStatus{Running: false, Pending: []string{}, Devices: []api.DeviceInfo{}})
				}
				colorize := shouldColorize(stdout)
				printSection(stdout, "Daemon", colorize)
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
				return nil
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(stdout, *status, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderDaemonStatus(out io.Writer, status api.DaemonStatus, colorize bool) {
	printSection(out, "Daemon", colorize)
	running := statusOK
	if !status.Running {
		running = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Running", running, fmt.Sprintf("%s (pid %d)", yesNo(status.Running), status.PID), colorize))
	if status.StartedAt != "" {
		fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatDisplayTime(status.StartedAt), colorize))
	}
	if status.SessionID != "" {
		fmt.Fprintln(out, renderStatusLine("Session", statusInfo, status.SessionID, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
	if status.HistoryPath != "" {
		fmt.Fprintln(out, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
	}
	fmt.Fprintln(out)

	printSection(out, "Detection", colorize)
	fmt.Fprintln(out, renderStatusLine("State", stateKind(status.State), titleLabel(status.State), colorize))
	scanKind := statusOK
	if !status.InitialScanDone {
		scanKind = statusInfo
	}
	fmt.Fprintln(out, renderStatusLine("Initial scan", scanKind, yesNo(status.InitialScanDone), colorize))
	busy := "idle"
	if status.Busy {
		busy = fmt.Sprintf("opening %d", len(status.Pending))
	}
	fmt.Fprintln(out, renderStatusLine("Detection", statusInfo, busy, colorize))
	fmt.Fprintln(out)

	printSection(out, "Devices", colorize)
	printDevices(out, status.Devices)
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

// daemonExecutable finds radiomond next to the running binary, then on PATH.
func daemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), daemonBinary)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	exe, err := exec.LookPath(daemonBinary)
	if err != nil {
		return "", fmt.Errorf("resolve %s executable: %w", daemonBinary, err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
	if ctx.logLevelFlag != nil {
		opts.LogLevel = *ctx.logLevelFlag
	}
	return opts
}
