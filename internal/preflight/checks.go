package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"

	"radiomon/internal/hotplug"
	"radiomon/internal/sysfs"
	"radiomon/internal/udev"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDeviceDirectory verifies that device nodes can be looked up and opened
// under dir.
func CheckDeviceDirectory(dir string) Result {
	return checkDirectory("Device directory", dir, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSysfs verifies that sysfs is mounted at the configured root by looking
// for its class hierarchy.
func CheckSysfs(sys sysfs.FS) Result {
	const name = "Sysfs"

	classDir := filepath.Join(sys.Root, "class")
	info, err := os.Stat(classDir)
	if err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: class directory missing)", sys.Root)}
	}
	entries, err := os.ReadDir(filepath.Join(classDir, "usbmisc"))
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no usbmisc class)", sys.Root)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d usbmisc nodes)", sys.Root, len(entries))}
}

// CheckDriverLoaded reports whether the kernel driver backing managed modems
// is registered on the USB bus. A missing driver is not fatal because the
// kernel loads it when a modem is plugged in.
func CheckDriverLoaded(sys sysfs.FS, driver string) Result {
	driver = strings.TrimSpace(driver)
	if driver == "" {
		driver = hotplug.DefaultDriver
	}
	name := "Driver " + driver

	path := filepath.Join(sys.Root, "bus", "usb", "drivers", driver)
	if _, err := os.Stat(path); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("not loaded (try: modprobe %s)", driver)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: "loaded"}
}

// CheckNetlink verifies that a uevent netlink socket can be bound for the
// configured mode.
func CheckNetlink(_ context.Context, mode string) Result {
	const name = "Uevent netlink"

	parsed, err := udev.ParseMode(mode)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	conn := new(netlink.UEventConn)
	if err := conn.Connect(parsed); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("bind failed (%v)", err)}
	}
	_ = conn.Close()

	label := strings.TrimSpace(mode)
	if label == "" {
		label = udev.ModeUdev
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s events available", label)}
}
