// Package main hosts the radiomon CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against a running daemon (status, devices, watch, stop), into direct reads
// of local state (history, scan, check), or into running the daemon in the
// foreground. It centralizes configuration resolution and socket discovery so
// subcommands can focus on presentation.
//
// Keep this package lean: add behavior to the internal packages first and
// surface it here.
package main
