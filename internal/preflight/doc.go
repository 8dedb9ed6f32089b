// Package preflight provides readiness checks for the host facilities
// radiomon depends on: writable state and log directories, a readable
// device directory, a mounted sysfs, the USB modem driver and the uevent
// netlink socket.
//
// These checks run in two contexts:
//   - The daemon logs a snapshot of RunAll at startup so a misconfigured
//     host is visible in the run log before the first hotplug event.
//   - The CLI "radiomon check" command prints every result and exits
//     non-zero when a required check fails.
//
// Optional checks report conditions that degrade but do not prevent
// operation; a driver that is not yet loaded is the common case.
package preflight
