package catalog

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"archivist/internal/logging"
)

// ApplicationID is written to the SQLite header so foreign databases are
// recognized and never migrated in place.
const ApplicationID = 0xBEEF

// SchemaVersion is the current schema version. Bump it together with a new
// file under migrations/.
const SchemaVersion = 2

//go:embed migrations/*.sql
var migrationFS embed.FS

type migration struct {
	version int
	name    string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version prefix", name)
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{version: version, name: name, sql: string(data)})
	}
	return migrations, nil
}

func (s *Store) init(ctx context.Context, reset bool) error {
	appID, err := s.pragmaInt(ctx, "application_id")
	if err != nil {
		return err
	}
	if reset || appID != ApplicationID {
		s.logger.Info("resetting catalog database",
			logging.String("catalog_path", s.path),
			logging.Bool("requested", reset),
			logging.Int64("application_id", appID),
		)
		if err := s.wipe(ctx); err != nil {
			return err
		}
	}

	version, err := s.pragmaInt(ctx, "user_version")
	if err != nil {
		return err
	}
	if version < 0 || version > SchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected at most %d", ErrUnsupportedSchema, version, SchemaVersion)
	}
	if version == SchemaVersion {
		return nil
	}
	s.logger.Debug("migrating catalog schema",
		logging.Int64("from", version),
		logging.Int("to", SchemaVersion),
	)
	return s.migrate(ctx, int(version))
}

func (s *Store) pragmaInt(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

// wipe drops every table and rewrites the application tag.
func (s *Store) wipe(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+table+`"`); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "PRAGMA user_version = 0"); err != nil {
		return fmt.Errorf("reset user_version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA application_id = %d", ApplicationID)); err != nil {
		return fmt.Errorf("write application_id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum catalog: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context, from int) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range migrations {
		if m.version <= from || m.version > SchemaVersion {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
