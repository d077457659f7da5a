package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordColumns = "path, size, taken_at, date_key, archived, archived_at"

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q queryer, kind Kind) ([]Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+recordColumns+` FROM `+kind.table()+` ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", kind, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		identity    string
		size        int64
		takenRaw    string
		dateKey     string
		archived    int64
		archivedRaw sql.NullString
	)
	if err := scanner.Scan(&identity, &size, &takenRaw, &dateKey, &archived, &archivedRaw); err != nil {
		return Record{}, err
	}

	record := Record{
		BasicEntry:  BasicEntry{Identity: identity, Size: uint64(size)},
		TemporalKey: dateKey,
		Archived:    archived != 0,
	}
	taken, err := parseTakenAt(takenRaw)
	if err != nil {
		return Record{}, fmt.Errorf("%s: taken_at %q: %w", identity, takenRaw, err)
	}
	record.TakenAt = taken
	if archivedRaw.Valid {
		at, err := parseTimeString(archivedRaw.String)
		if err != nil {
			return Record{}, fmt.Errorf("%s: archived_at %q: %w", identity, archivedRaw.String, err)
		}
		record.ArchivedAt = &at
	}
	return record, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// parseTakenAt reads the wall-clock capture time. Rows written before the
// layout was fixed may carry a space separator.
func parseTakenAt(value string) (time.Time, error) {
	if t, err := time.Parse(takenAtLayout, value); err == nil {
		return t, nil
	}
	return parseTimeString(value)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
