// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// Radiomon service answers Status and Devices from the coordinator's published
// snapshot and turns Shutdown into a request the daemon runtime acts on, so
// an RPC never waits for a drain.
package ipc
