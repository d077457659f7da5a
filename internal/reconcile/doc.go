// Package reconcile compares a freshly scanned staging set against the durable
// catalog.
//
// Diff keys entries by (identity, size): a file that changed size is treated
// as removed and re-added so its metadata is refreshed. Dedupe collapses
// entries sharing (display name, size) before diffing; clusters are advisory
// and surfaced to the caller for logging.
package reconcile
