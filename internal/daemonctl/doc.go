// Package daemonctl holds the CLI-side helpers that launch radiomond in the
// background and stop it over IPC.
//
// A launched daemon runs in its own session. EnsureStarted reports a daemon
// that dies before its socket answers instead of waiting out the timeout,
// and Stop returns only once the drained process has exited.
package daemonctl
