package catalog

import (
	"path"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Kind selects one of the two logical catalogs.
type Kind int

const (
	// Target is the archive ("on disk") catalog.
	Target Kind = iota
	// Source is the camera/card ("on source") catalog.
	Source
)

func (k Kind) String() string {
	switch k {
	case Target:
		return "target"
	case Source:
		return "source"
	default:
		return "unknown"
	}
}

func (k Kind) table() string {
	if k == Source {
		return "on_source"
	}
	return "on_target"
}

func (k Kind) stagingTable() string {
	if k == Source {
		return "staging_source"
	}
	return "staging_target"
}

// TemporalKeyLayout formats the calendar date used for matching and bucketing.
const TemporalKeyLayout = "2006-01-02"

const takenAtLayout = "2006-01-02T15:04:05"

// BasicEntry is a single file discovered by a scan.
type BasicEntry struct {
	// Identity is the slash-separated path relative to the scan root.
	Identity string
	Size     uint64
}

// DisplayName returns the NFC-normalized final path component.
func (e BasicEntry) DisplayName() string {
	return DisplayName(e.Identity)
}

// DisplayName returns the NFC-normalized final path component of identity.
func DisplayName(identity string) string {
	return norm.NFC.String(path.Base(identity))
}

// Record is the persisted form of an enriched entry.
type Record struct {
	BasicEntry
	TakenAt     time.Time
	TemporalKey string
	Archived    bool
	ArchivedAt  *time.Time
}

// NewRecord builds a record for entry captured at takenAt. The wall-clock
// value of takenAt is kept as recorded; only second precision is stored.
func NewRecord(entry BasicEntry, takenAt time.Time) Record {
	wall := time.Date(takenAt.Year(), takenAt.Month(), takenAt.Day(),
		takenAt.Hour(), takenAt.Minute(), takenAt.Second(), 0, time.UTC)
	return Record{
		BasicEntry:  entry,
		TakenAt:     wall,
		TemporalKey: wall.Format(TemporalKeyLayout),
	}
}

// Stats summarizes one catalog.
type Stats struct {
	Kind     Kind
	Records  int
	Archived int
	Bytes    uint64
}
