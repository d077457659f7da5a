package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"archivist/internal/logging"
)

// Options controls how a catalog database is opened.
type Options struct {
	// Reset wipes every table before use. Destructive.
	Reset  bool
	Logger *slog.Logger
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// Open initializes or connects to the catalog database at dbPath, verifying
// the application tag and applying migrations.
func Open(ctx context.Context, dbPath string, opts Options) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("catalog path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		lock:   lock,
		logger: logging.NewComponentLogger(opts.Logger, "catalog"),
	}
	if err := store.init(ensureContext(ctx), opts.Reset); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection and releases the lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		s.lock = nil
	}
	return err
}

// Begin opens the transaction for one phase.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ensureContext(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("begin catalog tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Records returns every record of the given catalog ordered by identity.
func (s *Store) Records(ctx context.Context, kind Kind) ([]Record, error) {
	return queryRecords(ensureContext(ctx), s.db, kind)
}

// Stats returns record counts for both catalogs.
func (s *Store) Stats(ctx context.Context) ([]Stats, error) {
	ctx = ensureContext(ctx)
	out := make([]Stats, 0, 2)
	for _, kind := range []Kind{Target, Source} {
		var (
			count    int
			archived sql.NullInt64
			bytes    sql.NullInt64
		)
		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1), SUM(archived), SUM(size) FROM `+kind.table())
		if err := row.Scan(&count, &archived, &bytes); err != nil {
			return nil, fmt.Errorf("%s stats: %w", kind, err)
		}
		out = append(out, Stats{
			Kind:     kind,
			Records:  count,
			Archived: int(archived.Int64),
			Bytes:    uint64(bytes.Int64),
		})
	}
	return out, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
