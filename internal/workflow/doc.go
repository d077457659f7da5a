// Package workflow sequences one archival run.
//
// A run has three phases, each scoped by its own catalog transaction: the
// target catalog is synced against the target root, the source catalog is
// synced against the source root (when one is configured), and the worklist
// produced by the matcher is archived. A sync pass stages the scan, collapses
// duplicate clusters, diffs the staging set against the durable records,
// enriches the new entries off the database and persists them in one commit.
//
// Any phase error rolls its transaction back, so rerunning after a failure or
// interrupt is always safe. Per-file failures (unreadable metadata, copy
// collisions, failed verification) are reported in the Summary and retried on
// the next run.
package workflow
