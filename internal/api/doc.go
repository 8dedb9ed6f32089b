// Package api defines wire-format types and converters for the IPC layer and
// CLI JSON output. It translates daemon, coordinator and history models into
// transport-friendly DTOs so clients never hold live device handles.
//
// DTOs use camelCase JSON tags. SIM state is exposed as the lowercase status
// string. Timestamps use RFC3339 with milliseconds in UTC.
package api
