// Package matcher compares the source catalog against the target catalog and
// derives the archive worklist.
//
// Records are joined on (display name, temporal key) so a file renamed into a
// dated folder on the target still matches its source. The same key with two
// different sizes is a data-integrity conflict and aborts matching.
package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"archivist/internal/catalog"
)

// ErrConflict marks a source/target pair that shares a match key but differs in size.
var ErrConflict = errors.New("catalog conflict")

// Conflict is one offending source/target pair.
type Conflict struct {
	Name        string
	TemporalKey string
	Source      catalog.Record
	Target      catalog.Record
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s@%s source %s (%d bytes) vs target %s (%d bytes)",
		c.Name, c.TemporalKey, c.Source.Identity, c.Source.Size, c.Target.Identity, c.Target.Size)
}

// ConflictError lists every conflict found in one matching pass.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%s: %d pair(s) share name and date with different sizes: %s",
		ErrConflict, len(e.Conflicts), strings.Join(parts, "; "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

type matchKey struct {
	name        string
	temporalKey string
}

func keyOf(record catalog.Record) matchKey {
	return matchKey{name: record.DisplayName(), temporalKey: record.TemporalKey}
}

// Match returns the source records that still need archiving: not yet
// archived and with no target record sharing their key. If any pair sharing a
// key differs in size, Match returns a *ConflictError and no worklist.
func Match(source, target []catalog.Record) ([]catalog.Record, error) {
	byKey := make(map[matchKey][]catalog.Record, len(target))
	for _, record := range target {
		key := keyOf(record)
		byKey[key] = append(byKey[key], record)
	}

	var conflicts []Conflict
	for _, src := range source {
		key := keyOf(src)
		for _, dst := range byKey[key] {
			if dst.Size == src.Size {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Name:        key.name,
				TemporalKey: key.temporalKey,
				Source:      src,
				Target:      dst,
			})
		}
	}
	if len(conflicts) > 0 {
		sort.Slice(conflicts, func(i, j int) bool {
			if conflicts[i].Source.Identity != conflicts[j].Source.Identity {
				return conflicts[i].Source.Identity < conflicts[j].Source.Identity
			}
			return conflicts[i].Target.Identity < conflicts[j].Target.Identity
		})
		return nil, &ConflictError{Conflicts: conflicts}
	}

	worklist := make([]catalog.Record, 0)
	for _, src := range source {
		if src.Archived {
			continue
		}
		if _, ok := byKey[keyOf(src)]; ok {
			continue
		}
		worklist = append(worklist, src)
	}
	sort.Slice(worklist, func(i, j int) bool {
		return worklist[i].Identity < worklist[j].Identity
	})
	return worklist, nil
}
