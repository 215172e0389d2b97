// Package config loads, normalizes, and validates Chromaflow configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as CHROMAFLOW_STORE_DSN.
// The CLI and the daemon both obtain their settings through this package so
// they agree on store location, identity, and log format.
package config
