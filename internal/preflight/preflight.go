package preflight

import (
	"context"
	"path/filepath"

	"radiomon/internal/config"
	"radiomon/internal/sysfs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.History.Path)))
	}

	results = append(results, CheckDeviceDirectory(cfg.Hotplug.DevDir))

	sys := sysfs.New(cfg.Hotplug.SysfsRoot)
	results = append(results, CheckSysfs(sys))
	results = append(results, CheckDriverLoaded(sys, cfg.Hotplug.Driver))

	results = append(results, CheckNetlink(ctx, cfg.Hotplug.NetlinkMode))

	return results
}

// Passed reports whether every required check succeeded.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}
