// Package config loads, normalizes, and validates archivist configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the ARCHIVIST_SOURCE,
// ARCHIVIST_TARGET and ARCHIVIST_DB environment variables. Command-line flags
// are layered on top through Override so every entry point resolves settings
// in the same order: flags, environment, file, defaults.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
