package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tx scopes every durable write of one phase.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the phase.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

// Rollback aborts the phase. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// Records returns every durable record of kind visible to the transaction.
func (t *Tx) Records(ctx context.Context, kind Kind) ([]Record, error) {
	return queryRecords(ensureContext(ctx), t.tx, kind)
}

// Stage drops and rebuilds the staging table of kind from entries.
func (t *Tx) Stage(ctx context.Context, kind Kind, entries []BasicEntry) error {
	ctx = ensureContext(ctx)
	if err := t.DropStaging(ctx, kind); err != nil {
		return err
	}
	name := kind.stagingTable()
	ddl := `CREATE TABLE ` + name + ` (
        name TEXT NOT NULL,
        path TEXT NOT NULL PRIMARY KEY,
        size INTEGER NOT NULL
    ) STRICT`
	if _, err := t.tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO `+name+` (name, path, size) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", name, err)
	}
	defer stmt.Close()
	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.DisplayName(), entry.Identity, int64(entry.Size)); err != nil {
			return fmt.Errorf("stage %s: %w", entry.Identity, err)
		}
	}
	return nil
}

// DropStaging removes the staging table of kind if present.
func (t *Tx) DropStaging(ctx context.Context, kind Kind) error {
	name := kind.stagingTable()
	if _, err := t.tx.ExecContext(ensureContext(ctx), `DROP TABLE IF EXISTS `+name); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// DeleteRecords removes the records with the given identities from kind.
func (t *Tx) DeleteRecords(ctx context.Context, kind Kind, identities []string) (int64, error) {
	ctx = ensureContext(ctx)
	if len(identities) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `DELETE FROM `+kind.table()+` WHERE path = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare %s delete: %w", kind, err)
	}
	defer stmt.Close()

	var total int64
	for _, identity := range identities {
		res, err := stmt.ExecContext(ctx, identity)
		if err != nil {
			return total, fmt.Errorf("delete %s: %w", identity, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// InsertRecords adds records to kind. An identity already present fails the
// insert and therefore the phase.
func (t *Tx) InsertRecords(ctx context.Context, kind Kind, records []Record) error {
	ctx = ensureContext(ctx)
	if len(records) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO `+kind.table()+` (name, path, size, taken_at, date_key, archived, archived_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", kind, err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.DisplayName(),
			record.Identity,
			int64(record.Size),
			record.TakenAt.Format(takenAtLayout),
			record.TemporalKey,
			boolToInt(record.Archived),
			nullableTime(record.ArchivedAt),
		); err != nil {
			return fmt.Errorf("insert %s: %w", record.Identity, err)
		}
	}
	return nil
}

// MarkArchived flips the archived flag for the given source identities.
func (t *Tx) MarkArchived(ctx context.Context, identities []string, at time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	if len(identities) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx,
		`UPDATE `+Source.table()+` SET archived = 1, archived_at = ? WHERE path = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare mark archived: %w", err)
	}
	defer stmt.Close()

	stamp := at.UTC().Format(time.RFC3339)
	var total int64
	for _, identity := range identities {
		res, err := stmt.ExecContext(ctx, stamp, identity)
		if err != nil {
			return total, fmt.Errorf("mark %s archived: %w", identity, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}
