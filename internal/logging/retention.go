package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLogPattern   = "radiomon-*.log"
	runLogTimestamp = "20060102T150405"
	// CurrentLogName is the symlink that always points at the active run log.
	CurrentLogName = "radiomon.log"
)

// RunLogPath returns the per-run log file for a daemon started at ts.
func RunLogPath(dir string, ts time.Time) string {
	return filepath.Join(dir, "radiomon-"+ts.UTC().Format(runLogTimestamp)+".log")
}

// LinkCurrent points dir/radiomon.log at target, replacing any previous link.
func LinkCurrent(dir, target string) error {
	link := filepath.Join(dir, CurrentLogName)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove log pointer: %w", err)
	}
	if err := os.Symlink(filepath.Base(target), link); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

// CleanupOldLogs removes per-run log files in dir older than retentionDays.
// Paths listed in keep are never removed. A retentionDays value of 0 disables
// pruning. It returns the number of files removed.
func CleanupOldLogs(logger *slog.Logger, dir string, retentionDays int, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			exclusions[abs] = struct{}{}
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			if _, skip := exclusions[abs]; skip {
				continue
			}
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), Event("log_pruned"))
		}
	}
	return removed
}
