// Package logging assembles the structured slog loggers used across radiomon.
//
// It owns the console and JSON handlers, the standard attribute keys
// (component, device, attempt_id, event_type, ...), helpers that keep warning
// records shaped consistently, and pruning of old per-run log files. A no-op
// logger is available for tests and wiring code that has nowhere to write.
package logging
