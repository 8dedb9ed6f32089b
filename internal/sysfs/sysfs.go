// Package sysfs resolves device attributes from a mounted sysfs tree.
package sysfs

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is where sysfs is normally mounted.
const DefaultRoot = "/sys"

// FS reads a sysfs tree rooted at Root. Device paths may be given relative to
// the root (/devices/...) or absolute under the standard /sys mount.
type FS struct {
	Root string
}

func New(root string) FS {
	root = strings.TrimSpace(root)
	if root == "" {
		root = DefaultRoot
	}
	return FS{Root: filepath.Clean(root)}
}

// Path maps a devpath onto the tree.
func (fs FS) Path(devpath string) string {
	root := fs.root()
	cleaned := filepath.Clean("/" + strings.TrimSpace(devpath))
	if cleaned == root || strings.HasPrefix(cleaned, root+"/") {
		return cleaned
	}
	if rel, ok := strings.CutPrefix(cleaned, DefaultRoot+"/"); ok {
		cleaned = "/" + rel
	}
	return filepath.Join(root, cleaned)
}

// DevPath is the inverse of Path: it returns the /devices/... form of p.
func (fs FS) DevPath(p string) string {
	cleaned := filepath.Clean(p)
	for _, prefix := range []string{fs.root(), DefaultRoot} {
		if rel, ok := strings.CutPrefix(cleaned, prefix+"/"); ok {
			return "/" + rel
		}
	}
	return cleaned
}

// Subsystem returns the subsystem the device belongs to, or "".
func (fs FS) Subsystem(devpath string) string {
	return linkBase(filepath.Join(fs.Path(devpath), "subsystem"))
}

// Driver returns the driver bound to the device, or "".
func (fs FS) Driver(devpath string) string {
	return linkBase(filepath.Join(fs.Path(devpath), "driver"))
}

// ParentDriver returns the driver of the nearest ancestor that is itself a
// device, or "" when that ancestor has no driver bound.
func (fs FS) ParentDriver(devpath string) string {
	parent := fs.parentDevice(fs.Path(devpath))
	if parent == "" {
		return ""
	}
	return linkBase(filepath.Join(parent, "driver"))
}

// ClassDevice resolves /sys/class/<class>/<name> to the real device
// directory, or "" when it does not exist.
func (fs FS) ClassDevice(class, name string) string {
	resolved, err := filepath.EvalSymlinks(filepath.Join(fs.root(), "class", class, name))
	if err != nil {
		return ""
	}
	return resolved
}

// USBDevice walks up from path to the USB device that carries idVendor.
func (fs FS) USBDevice(path string) string {
	root := fs.root()
	for dir := filepath.Clean(path); dir != root && dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if fileExists(filepath.Join(dir, "idVendor")) {
			return dir
		}
	}
	return ""
}

// Attr returns the trimmed contents of an attribute file, or "".
func (fs FS) Attr(path, name string) string {
	data, err := os.ReadFile(filepath.Join(path, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (fs FS) root() string {
	if fs.Root == "" {
		return DefaultRoot
	}
	return filepath.Clean(fs.Root)
}

func (fs FS) parentDevice(path string) string {
	root := fs.root()
	for dir := filepath.Dir(path); dir != root && dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if fileExists(filepath.Join(dir, "uevent")) {
			return dir
		}
	}
	return ""
}

func linkBase(link string) string {
	target, err := os.Readlink(link)
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
