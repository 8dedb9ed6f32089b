// Package notifications pushes modem lifecycle events to ntfy.
//
// Service publishes a single event and degrades to a no-op when no topic is
// configured. Notifier adapts a Service to the hotplug observer contract:
// it queues messages for a background worker so the coordinator loop never
// waits on HTTP, folds the startup enumeration into one summary, and stays
// quiet about removals caused by the daemon draining on shutdown.
package notifications
