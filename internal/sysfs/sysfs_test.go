package sysfs

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	usbDevPath   = "/devices/pci0000:00/0000:00:14.0/usb1/1-1"
	ifaceDevPath = usbDevPath + "/1-1:1.4"
	wdmDevPath   = ifaceDevPath + "/usbmisc/cdc-wdm0"
)

func buildTree(t *testing.T) FS {
	t.Helper()
	root := t.TempDir()
	mkdir := func(rel string) string {
		dir := filepath.Join(root, rel)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		return dir
	}
	write := func(rel, content string) {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	link := func(target, rel string) {
		if err := os.Symlink(target, filepath.Join(root, rel)); err != nil {
			t.Fatal(err)
		}
	}

	mkdir(wdmDevPath)
	mkdir("bus/usb/drivers/qmi_wwan")
	mkdir("bus/usb/drivers/usb")
	mkdir("class/usbmisc")

	write(usbDevPath+"/uevent", "DEVTYPE=usb_device\n")
	write(usbDevPath+"/idVendor", "2c7c\n")
	write(usbDevPath+"/manufacturer", "Quectel\n")
	write(usbDevPath+"/product", "EG25-G\n")
	write(usbDevPath+"/bcdDevice", "0318\n")
	write(ifaceDevPath+"/uevent", "DEVTYPE=usb_interface\nDRIVER=qmi_wwan\n")
	write(wdmDevPath+"/uevent", "MAJOR=180\nMINOR=176\nDEVNAME=cdc-wdm0\n")

	link("../../../../bus/usb/drivers/usb", usbDevPath[1:]+"/driver")
	link("../../../../../bus/usb/drivers/qmi_wwan", ifaceDevPath[1:]+"/driver")
	link("../../../../../../../class/usbmisc", wdmDevPath[1:]+"/subsystem")
	link("../.."+wdmDevPath, "class/usbmisc/cdc-wdm0")

	return New(root)
}

func TestNewDefaultsRoot(t *testing.T) {
	if got := New("  ").Root; got != DefaultRoot {
		t.Fatalf("Root = %q, want %q", got, DefaultRoot)
	}
}

func TestPathAcceptsBothForms(t *testing.T) {
	fs := FS{Root: "/tmp/fake"}
	cases := map[string]string{
		"/devices/a/b":     "/tmp/fake/devices/a/b",
		"/sys/devices/a/b": "/tmp/fake/devices/a/b",
		"/tmp/fake/dev/a":  "/tmp/fake/dev/a",
	}
	for in, want := range cases {
		if got := fs.Path(in); got != want {
			t.Fatalf("Path(%q) = %q, want %q", in, got, want)
		}
	}
	if got := fs.DevPath("/tmp/fake/devices/a"); got != "/devices/a" {
		t.Fatalf("DevPath = %q", got)
	}
	if got := fs.DevPath("/sys/devices/a"); got != "/devices/a" {
		t.Fatalf("DevPath = %q", got)
	}
}

func TestDriverResolution(t *testing.T) {
	fs := buildTree(t)

	if got := fs.Subsystem(wdmDevPath); got != "usbmisc" {
		t.Fatalf("Subsystem = %q, want usbmisc", got)
	}
	if got := fs.Driver(wdmDevPath); got != "" {
		t.Fatalf("Driver = %q, want empty for class device", got)
	}
	if got := fs.ParentDriver(wdmDevPath); got != "qmi_wwan" {
		t.Fatalf("ParentDriver = %q, want qmi_wwan", got)
	}
	if got := fs.Driver(ifaceDevPath); got != "qmi_wwan" {
		t.Fatalf("Driver(interface) = %q", got)
	}
	if got := fs.ParentDriver(ifaceDevPath); got != "usb" {
		t.Fatalf("ParentDriver(interface) = %q, want usb", got)
	}
	if got := fs.ParentDriver("/devices/missing/cdc-wdm9"); got != "" {
		t.Fatalf("ParentDriver(missing) = %q", got)
	}
}

func TestClassDeviceAndUSBAttributes(t *testing.T) {
	fs := buildTree(t)

	dir := fs.ClassDevice("usbmisc", "cdc-wdm0")
	if dir == "" {
		t.Fatal("expected class device to resolve")
	}
	usb := fs.USBDevice(dir)
	if usb == "" {
		t.Fatal("expected USB device ancestor")
	}
	if got := fs.Attr(usb, "manufacturer"); got != "Quectel" {
		t.Fatalf("manufacturer = %q", got)
	}
	if got := fs.Attr(usb, "bcdDevice"); got != "0318" {
		t.Fatalf("bcdDevice = %q", got)
	}
	if got := fs.Attr(usb, "serial"); got != "" {
		t.Fatalf("missing attr = %q", got)
	}
	if fs.ClassDevice("usbmisc", "cdc-wdm9") != "" {
		t.Fatal("expected missing class device to resolve empty")
	}
	if fs.USBDevice(fs.Root) != "" {
		t.Fatal("expected no USB device above root")
	}
}
