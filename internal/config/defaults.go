package config

import "radiomon/internal/hotplug"

const (
	defaultConfigPath       = "~/.config/radiomon/config.toml"
	defaultStateDir         = "~/.local/share/radiomon"
	defaultSocketName       = "radiomon.sock"
	defaultHistoryName      = "history.db"
	defaultSubsystemPrefix  = hotplug.DefaultSubsystemPrefix
	defaultNamePrefix       = hotplug.DefaultNamePrefix
	defaultDriver           = hotplug.DefaultDriver
	defaultDevDir           = "/dev"
	defaultSysfsRoot        = "/sys"
	defaultNetlinkMode      = "udev"
	defaultOpenTimeout      = 15
	defaultCloseTimeout     = 5
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14
	defaultNotifyTimeout    = 10
)

func defaultSubsystems() []string {
	return []string{"usb", "usbmisc"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Hotplug: Hotplug{
			SubsystemPrefix: defaultSubsystemPrefix,
			NamePrefix:      defaultNamePrefix,
			Driver:          defaultDriver,
			Subsystems:      defaultSubsystems(),
			DevDir:          defaultDevDir,
			SysfsRoot:       defaultSysfsRoot,
			NetlinkMode:     defaultNetlinkMode,
			OpenTimeout:     defaultOpenTimeout,
			CloseTimeout:    defaultCloseTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			OpenFailures:   true,
		},
	}
}
