// Package logs reads radiomon run logs for the CLI.
//
// Last returns the trailing lines of a log with bounded memory, and Follow
// polls for appended lines. Follow re-resolves the path on every poll, so
// following the radiomon.log pointer keeps working across daemon restarts
// that start a new run log. MatchDevice narrows output to records about a
// single modem in either log format.
package logs
