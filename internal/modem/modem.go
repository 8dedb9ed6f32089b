// Package modem opens QMI control-channel device nodes and reads the USB
// identity of the modem behind them.
package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"radiomon/internal/hotplug"
	"radiomon/internal/logging"
	"radiomon/internal/sysfs"
)

var (
	// ErrNotCharDevice is returned when the node is not a character device.
	ErrNotCharDevice = errors.New("not a character device")
	// ErrClosed is returned when closing a modem that is already closed.
	ErrClosed = errors.New("modem already closed")
)

// DefaultClass is the sysfs class cdc-wdm nodes are registered under.
const DefaultClass = "usbmisc"

// Driver implements hotplug.Driver for cdc-wdm nodes.
type Driver struct {
	sys    sysfs.FS
	class  string
	logger *slog.Logger
}

func NewDriver(sys sysfs.FS, logger *slog.Logger) *Driver {
	if sys.Root == "" {
		sys = sysfs.New("")
	}
	return &Driver{
		sys:    sys,
		class:  DefaultClass,
		logger: logging.NewComponentLogger(logger, "modem"),
	}
}

// Open opens the node non-blocking and captures the modem identity. The
// context is checked before and after the open.
func (d *Driver) Open(ctx context.Context, path string) (hotplug.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, &os.PathError{Op: "fstat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", path, ErrNotCharDevice)
	}
	if err := ctx.Err(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	m := &Modem{
		name: filepath.Base(path),
		path: path,
		fd:   fd,
	}
	d.readIdentity(m)
	d.logger.Debug("modem node opened",
		logging.Device(m.name),
		logging.String("manufacturer", m.manufacturer),
		logging.String("model", m.model),
		logging.String("revision", m.revision),
	)
	return m, nil
}

func (d *Driver) readIdentity(m *Modem) {
	dir := d.sys.ClassDevice(d.class, m.name)
	if dir == "" {
		return
	}
	usb := d.sys.USBDevice(dir)
	if usb == "" {
		return
	}
	m.manufacturer = d.sys.Attr(usb, "manufacturer")
	m.model = d.sys.Attr(usb, "product")
	m.revision = formatRevision(d.sys.Attr(usb, "bcdDevice"))
}

// formatRevision renders a bcdDevice value such as 0318 as 3.18.
func formatRevision(bcd string) string {
	bcd = strings.TrimSpace(bcd)
	if len(bcd) != 4 {
		return bcd
	}
	major := strings.TrimLeft(bcd[:2], "0")
	if major == "" {
		major = "0"
	}
	return major + "." + bcd[2:]
}

// Modem is an open cdc-wdm node.
type Modem struct {
	name         string
	path         string
	manufacturer string
	model        string
	revision     string

	mu     sync.Mutex
	fd     int
	closed bool
}

func (m *Modem) Name() string         { return m.name }
func (m *Modem) Path() string         { return m.path }
func (m *Modem) Manufacturer() string { return m.manufacturer }
func (m *Modem) Model() string        { return m.model }
func (m *Modem) Revision() string     { return m.revision }

// Status is always unknown; SIM state is only available over QMI.
func (m *Modem) Status() hotplug.LockStatus { return hotplug.LockUnknown }

// Close releases the node. A second Close returns ErrClosed.
func (m *Modem) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	if err := unix.Close(m.fd); err != nil {
		return &os.PathError{Op: "close", Path: m.path, Err: err}
	}
	return nil
}
