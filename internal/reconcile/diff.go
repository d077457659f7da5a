package reconcile

import (
	"sort"

	"archivist/internal/catalog"
)

// Result describes the changes needed to bring a catalog in line with a scan.
type Result struct {
	// Removed lists identities of durable records with no staged match.
	Removed []string
	// Kept counts durable records that matched a staged entry exactly.
	Kept int
	// New lists staged entries with no durable match, sorted by identity.
	New []catalog.BasicEntry
}

type entryKey struct {
	identity string
	size     uint64
}

// Diff partitions durable and staged into removed, kept and new entries.
func Diff(durable []catalog.Record, staged []catalog.BasicEntry) Result {
	stagedKeys := make(map[entryKey]struct{}, len(staged))
	for _, entry := range staged {
		stagedKeys[entryKey{entry.Identity, entry.Size}] = struct{}{}
	}

	result := Result{Removed: []string{}, New: []catalog.BasicEntry{}}
	durableKeys := make(map[entryKey]struct{}, len(durable))
	for _, record := range durable {
		key := entryKey{record.Identity, record.Size}
		durableKeys[key] = struct{}{}
		if _, ok := stagedKeys[key]; ok {
			result.Kept++
			continue
		}
		result.Removed = append(result.Removed, record.Identity)
	}
	sort.Strings(result.Removed)

	seen := make(map[entryKey]struct{}, len(staged))
	for _, entry := range staged {
		key := entryKey{entry.Identity, entry.Size}
		if _, ok := durableKeys[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.New = append(result.New, entry)
	}
	sort.Slice(result.New, func(i, j int) bool {
		return result.New[i].Identity < result.New[j].Identity
	})
	return result
}
