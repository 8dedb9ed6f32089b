// Package history records device sessions and failed open attempts in
// SQLite.
//
// A session spans one registration of a device, from the coordinator's
// DeviceAdded notification to its DeviceRemoved notification. The Recorder
// adapts coordinator notifications into store writes on a background worker.
// Sessions still open when a daemon starts belong to a run that exited
// without draining and are closed as interrupted.
package history
