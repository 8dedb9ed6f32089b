// Package config loads, normalizes, and validates radiomon configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RADIOMON_LOG_LEVEL environment
// override. The Config type centralizes every knob the daemon and CLI need so
// the state directory, control socket and device filter are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
