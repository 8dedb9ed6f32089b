package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Symlink creates link pointing at a target relative to the link's directory.
func Symlink(t testing.TB, target, link string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", link, err)
	}
	rel, err := filepath.Rel(filepath.Dir(link), target)
	if err != nil {
		t.Fatalf("relative link %s: %v", link, err)
	}
	if err := os.Symlink(rel, link); err != nil {
		t.Fatalf("symlink %s: %v", link, err)
	}
}

// FakeModem describes a USB modem to lay out in a fake sysfs tree.
type FakeModem struct {
	Name         string
	Port         string
	Driver       string
	Manufacturer string
	Product      string
	BCDDevice    string
}

// AddFakeModem lays out the sysfs entries for a cdc-wdm style control node
// under root and returns its devpath (relative to the sysfs root, with a
// leading slash).
func AddFakeModem(t testing.TB, root string, m FakeModem) string {
	t.Helper()

	if m.Port == "" {
		m.Port = "1-1"
	}
	if m.Driver == "" {
		m.Driver = "qmi_wwan"
	}
	usbDevPath := "/devices/pci0000:00/0000:00:14.0/usb1/" + m.Port
	ifaceDevPath := fmt.Sprintf("%s/%s:1.4", usbDevPath, m.Port)
	nodeDevPath := ifaceDevPath + "/usbmisc/" + m.Name

	abs := func(rel string) string {
		return filepath.Join(root, strings.TrimPrefix(rel, "/"))
	}

	WriteFile(t, abs(usbDevPath+"/uevent"), "DEVTYPE=usb_device\n")
	WriteFile(t, abs(usbDevPath+"/idVendor"), "2c7c\n")
	if m.Manufacturer != "" {
		WriteFile(t, abs(usbDevPath+"/manufacturer"), m.Manufacturer+"\n")
	}
	if m.Product != "" {
		WriteFile(t, abs(usbDevPath+"/product"), m.Product+"\n")
	}
	if m.BCDDevice != "" {
		WriteFile(t, abs(usbDevPath+"/bcdDevice"), m.BCDDevice+"\n")
	}
	WriteFile(t, abs(ifaceDevPath+"/uevent"), "DEVTYPE=usb_interface\nDRIVER="+m.Driver+"\n")
	WriteFile(t, abs(nodeDevPath+"/uevent"), "DEVNAME="+m.Name+"\n")

	for _, dir := range []string{"bus/usb/drivers/usb", "bus/usb/drivers/" + m.Driver, "class/usbmisc"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	linkIfMissing := func(target, link string) {
		if _, err := os.Lstat(link); err == nil {
			return
		}
		Symlink(t, target, link)
	}
	linkIfMissing(filepath.Join(root, "bus/usb/drivers/usb"), abs(usbDevPath+"/driver"))
	linkIfMissing(filepath.Join(root, "bus/usb/drivers", m.Driver), abs(ifaceDevPath+"/driver"))
	linkIfMissing(filepath.Join(root, "class/usbmisc"), abs(nodeDevPath+"/subsystem"))
	linkIfMissing(abs(nodeDevPath), filepath.Join(root, "class/usbmisc", m.Name))

	return nodeDevPath
}
