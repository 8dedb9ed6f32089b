package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHotplug(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHotplug() error {
	switch c.Hotplug.NetlinkMode {
	case "udev", "kernel":
	default:
		return fmt.Errorf("hotplug.netlink_mode must be udev or kernel, got %q", c.Hotplug.NetlinkMode)
	}
	if c.Hotplug.OpenTimeout < 0 {
		return errors.New("hotplug.open_timeout must not be negative")
	}
	if c.Hotplug.CloseTimeout < 0 {
		return errors.New("hotplug.close_timeout must not be negative")
	}
	for _, subsystem := range c.Hotplug.Subsystems {
		if strings.ContainsAny(subsystem, "/ ") {
			return fmt.Errorf("hotplug.subsystems: invalid subsystem %q", subsystem)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil {
		return fmt.Errorf("notifications.ntfy_topic: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) topic URL, got %q", topic)
	}
	return nil
}
