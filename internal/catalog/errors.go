package catalog

import "errors"

var (
	// ErrUnsupportedSchema indicates the database reports a schema version this
	// build cannot migrate from.
	ErrUnsupportedSchema = errors.New("unsupported catalog schema version")
	// ErrLocked indicates another process holds the catalog lock.
	ErrLocked = errors.New("catalog is locked by another process")
)
