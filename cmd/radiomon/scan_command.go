package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
	"radiomon/internal/sysfs"
	"radiomon/internal/udev"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Enumerate attached devices and show which ones radiomon would manage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			monitor, err := udev.New(udev.Options{
				Mode:   cfg.Hotplug.NetlinkMode,
				SysFS:  sysfs.New(cfg.Hotplug.SysfsRoot),
				Logger: logging.NewNop(),
			})
			if err != nil {
				return err
			}
			events, err := monitor.Enumerate(cmd.Context(), cfg.Hotplug.Subsystems)
			if err != nil {
				return fmt.Errorf("enumerate devices: %w", err)
			}
			results := classifyEvents(events, cfg.HotplugFilter(), all)
			if asJSON {
				return writeJSON(cmd, results)
			}
			printScanResults(cmd, results, all)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include devices the filter rejects")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return cmd
}

type scanResult struct {
	Name      string `json:"name"`
	Subsystem string `json:"subsystem"`
	Driver    string `json:"driver,omitempty"`
	Managed   bool   `json:"managed"`
}

// classifyEvents runs enumerated events through filter. Rejected events are
// dropped unless all is set. The result is never nil.
func classifyEvents(events []hotplug.Event, filter hotplug.Filter, all bool) []scanResult {
	results := make([]scanResult, 0, len(events))
	for _, ev := range events {
		managed := filter.Accepts(ev)
		if !managed && !all {
			continue
		}
		driver := ev.Driver
		if driver == "" {
			driver = ev.ParentDriver
		}
		results = append(results, scanResult{
			Name:      ev.Name,
			Subsystem: ev.Subsystem,
			Driver:    driver,
			Managed:   managed,
		})
	}
	return results
}

func printScanResults(cmd *cobra.Command, results []scanResult, all bool) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching devices found")
		return
	}
	headers := []string{"Device", "Subsystem", "Driver"}
	if all {
		headers = append(headers, "Managed")
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{r.Name, r.Subsystem, dashIfEmpty(r.Driver)}
		if all {
			row = append(row, yesNo(r.Managed))
		}
		rows = append(rows, row)
	}
	fmt.Fprint(out, renderTable(headers, rows, nil))
}
