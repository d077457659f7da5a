// Package logging assembles structured slog loggers and formatting helpers used
// across archivist.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and tags every line with the invocation's run_id. WarnWithContext
// enforces event_type, error_hint and impact on per-item warnings so skipped
// files always explain themselves. A no-op logger serves tests and packages
// opened without one.
package logging
