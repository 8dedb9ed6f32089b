package main

import (
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"radiomon/internal/logging"
	"radiomon/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var device string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current daemon run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return fmt.Errorf("lines must not be negative")
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.CurrentLogName)
			out := cmd.OutOrStdout()

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			printed := printLogLines(out, tail, device)
			if !follow {
				if len(tail) == 0 && printed == 0 {
					fmt.Fprintln(out, "No log output yet")
				}
				return nil
			}

			followCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(followCtx, path, offset, 250*time.Millisecond, func(line string) {
				if logs.MatchDevice(line, device) {
					fmt.Fprintln(out, line)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines, following daemon restarts")
	cmd.Flags().StringVar(&device, "device", "", "Only show records about this device node")
	return cmd
}

func printLogLines(out io.Writer, lines []string, device string) int {
	printed := 0
	for _, line := range lines {
		if !logs.MatchDevice(line, device) {
			continue
		}
		fmt.Fprintln(out, line)
		printed++
	}
	return printed
}
