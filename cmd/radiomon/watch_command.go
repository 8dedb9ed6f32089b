package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/rpc"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"radiomon/internal/api"
	"radiomon/internal/ipc"
)

type deviceChange struct {
	Added  bool
	Device api.DeviceInfo
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print modems as they are registered and removed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			watchCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := ctx.dialClient()
			if err != nil {
				return err
			}
			defer client.Close()
			return watchDevices(watchCtx, cmd.OutOrStdout(), client, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	return cmd
}

type devicesLister interface {
	Devices() (*ipc.DevicesResponse, error)
}

// watchDevices polls the daemon and prints differences until ctx ends or the
// daemon goes away. The first poll prints the devices already registered.
func watchDevices(ctx context.Context, out io.Writer, client devicesLister, interval time.Duration) error {
	var previous []api.DeviceInfo
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := client.Devices()
		if err != nil {
			if ipc.IsUnavailable(err) || isConnectionClosed(err) {
				fmt.Fprintln(out, "daemon stopped")
				return nil
			}
			return err
		}
		for _, change := range diffDevices(previous, resp.Devices) {
			fmt.Fprintln(out, formatChange(time.Now(), change))
		}
		previous = resp.Devices

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// diffDevices reports removals first, then additions in registration order.
// A device re-registered under the same name between polls shows up as a
// removal and an addition.
func diffDevices(previous, current []api.DeviceInfo) []deviceChange {
	now := make(map[deviceKey]struct{}, len(current))
	for _, dev := range current {
		now[keyOf(dev)] = struct{}{}
	}
	before := make(map[deviceKey]struct{}, len(previous))
	var changes []deviceChange
	for _, dev := range previous {
		before[keyOf(dev)] = struct{}{}
		if _, ok := now[keyOf(dev)]; !ok {
			changes = append(changes, deviceChange{Added: false, Device: dev})
		}
	}
	for _, dev := range current {
		if _, ok := before[keyOf(dev)]; !ok {
			changes = append(changes, deviceChange{Added: true, Device: dev})
		}
	}
	return changes
}

type deviceKey struct {
	name    string
	attempt string
}

func keyOf(dev api.DeviceInfo) deviceKey {
	return deviceKey{name: dev.Name, attempt: dev.AttemptID}
}

func formatChange(at time.Time, change deviceChange) string {
	sign := "-"
	if change.Added {
		sign = "+"
	}
	dev := change.Device
	var parts []string
	for _, field := range []string{dev.Manufacturer, dev.Model, dev.Revision} {
		if field != "" {
			parts = append(parts, field)
		}
	}
	line := fmt.Sprintf("%s %s %s", at.Format("15:04:05"), sign, dev.Name)
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, " ") + ")"
	}
	return line
}

func isConnectionClosed(err error) bool {
	return errors.Is(err, rpc.ErrShutdown) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE)
}
