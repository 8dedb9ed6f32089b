package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeHotplug(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = filepath.Join(c.Paths.StateDir, defaultSocketName)
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeHotplug() error {
	h := &c.Hotplug
	h.SubsystemPrefix = strings.TrimSpace(h.SubsystemPrefix)
	if h.SubsystemPrefix == "" {
		h.SubsystemPrefix = defaultSubsystemPrefix
	}
	h.NamePrefix = strings.TrimSpace(h.NamePrefix)
	if h.NamePrefix == "" {
		h.NamePrefix = defaultNamePrefix
	}
	h.Driver = strings.TrimSpace(h.Driver)
	if h.Driver == "" {
		h.Driver = defaultDriver
	}

	subsystems := make([]string, 0, len(h.Subsystems))
	seen := make(map[string]struct{}, len(h.Subsystems))
	for _, subsystem := range h.Subsystems {
		normalized := strings.ToLower(strings.TrimSpace(subsystem))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		subsystems = append(subsystems, normalized)
	}
	if len(subsystems) == 0 {
		subsystems = defaultSubsystems()
	}
	h.Subsystems = subsystems

	var err error
	if strings.TrimSpace(h.DevDir) == "" {
		h.DevDir = defaultDevDir
	}
	if h.DevDir, err = expandPath(h.DevDir); err != nil {
		return fmt.Errorf("hotplug.dev_dir: %w", err)
	}
	if strings.TrimSpace(h.SysfsRoot) == "" {
		h.SysfsRoot = defaultSysfsRoot
	}
	if h.SysfsRoot, err = expandPath(h.SysfsRoot); err != nil {
		return fmt.Errorf("hotplug.sysfs_root: %w", err)
	}
	h.NetlinkMode = strings.ToLower(strings.TrimSpace(h.NetlinkMode))
	if h.NetlinkMode == "" {
		h.NetlinkMode = defaultNetlinkMode
	}
	if h.OpenTimeout == 0 {
		h.OpenTimeout = defaultOpenTimeout
	}
	if h.CloseTimeout == 0 {
		h.CloseTimeout = defaultCloseTimeout
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryName)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("RADIOMON_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
