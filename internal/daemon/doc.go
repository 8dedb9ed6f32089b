// Package daemon coordinates the long-running radiomon process.
//
// It wraps the hotplug coordinator in a lifecycle with flock-based locking
// to prevent multiple instances, closes history sessions left open by a
// previous crash, and exposes the status, device and shutdown requests
// served over IPC. Stop drains the coordinator before the lock is released,
// so every modem is closed by the time a second instance can start.
package daemon
