// Package catalog persists the target and source file catalogs in SQLite and
// exposes phase-scoped transactions for mutating them.
//
// A Store owns one database file. Open verifies the application tag stored in
// the database header and wipes the file when the tag is foreign or a reset is
// requested, then walks the embedded forward-only migrations until the schema
// reaches SchemaVersion. Databases reporting a newer (or negative) version are
// rejected rather than guessed at.
//
// Every durable write of a phase (target sync, source sync, archival) goes
// through a single Tx so a failed phase leaves no partial state behind. The
// per-pass staging tables live next to the durable ones and are dropped and
// rebuilt on every Stage call.
package catalog
