package workflow_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"archivist/internal/archive"
	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/enrich"
	"archivist/internal/fileutil"
	"archivist/internal/logging"
	"archivist/internal/matcher"
	"archivist/internal/scan"
	"archivist/internal/testsupport"
	"archivist/internal/workflow"
)

// dateEnricher dates files by base name.
type dateEnricher map[string]string

func (d dateEnricher) Enrich(_ context.Context, absPath string) (time.Time, error) {
	key, ok := d[filepath.Base(absPath)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", enrich.ErrNoTimestamp, absPath)
	}
	day, err := time.Parse(catalog.TemporalKeyLayout, key)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(9 * time.Hour), nil
}

type countingProgress struct {
	mu     sync.Mutex
	labels []string
	ticks  atomic.Int64
	done   int
}

func (p *countingProgress) Start(label string, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.labels = append(p.labels, label)
}

func (p *countingProgress) Increment() { p.ticks.Add(1) }

func (p *countingProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
}

var fixedNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, cfg *config.Config, store *catalog.Store, mutate ...func(*workflow.Options)) *workflow.Runner {
	t.Helper()
	opts := workflow.Options{
		SourceRoot: cfg.Paths.SourceDir,
		TargetRoot: cfg.Paths.TargetDir,
		Scan: scan.Options{
			SkipExtensions: cfg.Scan.SkipExtensions,
			IgnorePatterns: cfg.Scan.IgnorePatterns,
		},
		Workers:     cfg.Workflow.Workers,
		KeepStaging: cfg.Workflow.KeepStagingTables,
		Enricher: dateEnricher{
			"a.jpg": "2023-01-01",
			"b.jpg": "2023-01-02",
			"c.jpg": "2023-01-03",
		},
		Now: func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	runner, err := workflow.NewRunner(store, opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func identities(records []catalog.Record) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.Identity)
	}
	return out
}

func mustRecords(t *testing.T, store *catalog.Store, kind catalog.Kind) []catalog.Record {
	t.Helper()
	records, err := store.Records(context.Background(), kind)
	if err != nil {
		t.Fatalf("Records(%s): %v", kind, err)
	}
	return records
}

func seedScenario(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TargetDir, "a.jpg"), 100)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "a.jpg"), 100)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "b.jpg"), 50)
}

func TestRunArchivesMissingFilesThenSettles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedScenario(t, cfg)
	progress := &countingProgress{}
	runner := newRunner(t, cfg, store, func(o *workflow.Options) { o.Progress = progress })
	ctx := logging.WithRunID(context.Background(), "run-1")

	first, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.RunID != "run-1" {
		t.Fatalf("RunID = %q", first.RunID)
	}
	if got := identities(first.Worklist); len(got) != 1 || got[0] != "b.jpg" {
		t.Fatalf("first worklist = %v, want [b.jpg]", got)
	}
	if first.Target.New != 1 || first.Source.New != 2 {
		t.Fatalf("unexpected new counts: target=%d source=%d", first.Target.New, first.Source.New)
	}
	archived := filepath.Join(cfg.Paths.TargetDir, "2023-01-02", "b.jpg")
	info, err := os.Stat(archived)
	if err != nil {
		t.Fatalf("expected archived copy: %v", err)
	}
	if info.Size() != 50 {
		t.Fatalf("archived size = %d, want 50", info.Size())
	}
	if len(first.ArchivedPaths) != 1 || first.ArchivedPaths[0] != archived {
		t.Fatalf("ArchivedPaths = %v", first.ArchivedPaths)
	}
	if got := progress.ticks.Load(); got != 4 {
		t.Fatalf("progress ticks = %d, want 4", got)
	}
	if len(progress.labels) != 3 || progress.done != 3 {
		t.Fatalf("progress phases = %v (finished %d)", progress.labels, progress.done)
	}

	source := mustRecords(t, store, catalog.Source)
	for _, record := range source {
		if record.Identity == "b.jpg" {
			if !record.Archived || record.ArchivedAt == nil || !record.ArchivedAt.Equal(fixedNow) {
				t.Fatalf("b.jpg not marked archived: %#v", record)
			}
		} else if record.Archived {
			t.Fatalf("%s unexpectedly archived", record.Identity)
		}
	}

	second, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.Worklist) != 0 {
		t.Fatalf("second worklist = %v, want empty", identities(second.Worklist))
	}
	if second.Source.New != 0 || second.Source.Removed != 0 || second.Source.Kept != 2 {
		t.Fatalf("source sync not idempotent: %#v", second.Source)
	}
	if second.Target.New != 1 || second.Target.Removed != 0 {
		t.Fatalf("target should pick up the archived copy once: %#v", second.Target)
	}

	third, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if third.Target.New != 0 || third.Target.Removed != 0 || third.Source.New != 0 || third.Source.Removed != 0 {
		t.Fatalf("unchanged roots should be a no-op: target=%#v source=%#v", third.Target, third.Source)
	}
}

func TestRunCollapsesDuplicateClusters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "DCIM", "101", "c.jpg"), 20)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "DCIM", "100", "c.jpg"), 20)

	summary, err := newRunner(t, cfg, store, func(o *workflow.Options) { o.DryRun = true }).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Source.Duplicates) != 1 || summary.Source.DuplicateFiles != 1 {
		t.Fatalf("expected one duplicate cluster, got %#v", summary.Source.Duplicates)
	}
	cluster := summary.Source.Duplicates[0]
	if cluster.Name != "c.jpg" || len(cluster.Paths) != 2 {
		t.Fatalf("unexpected cluster: %#v", cluster)
	}
	got := identities(mustRecords(t, store, catalog.Source))
	if len(got) != 1 || got[0] != "DCIM/100/c.jpg" {
		t.Fatalf("source catalog = %v, want the smallest path only", got)
	}
}

func TestRunForgetsRemovedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedScenario(t, cfg)
	runner := newRunner(t, cfg, store, func(o *workflow.Options) { o.DryRun = true })

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := os.Remove(filepath.Join(cfg.Paths.SourceDir, "b.jpg")); err != nil {
		t.Fatalf("remove b.jpg: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "c.jpg"), 10)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Source.Removed != 1 || summary.Source.New != 1 {
		t.Fatalf("source removed=%d new=%d, want 1/1", summary.Source.Removed, summary.Source.New)
	}
	got := identities(mustRecords(t, store, catalog.Source))
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "c.jpg" {
		t.Fatalf("source catalog = %v", got)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "b.jpg"), 50)
	restored, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if restored.Source.Removed != 0 || restored.Source.New != 1 {
		t.Fatalf("restored file: removed=%d new=%d, want 0/1", restored.Source.Removed, restored.Source.New)
	}
	if got := identities(restored.Worklist); len(got) != 1 || got[0] != "b.jpg" {
		t.Fatalf("restored file should be pending again, worklist = %v", got)
	}
}

func TestRunLeavesFailedCopiesUnarchived(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedScenario(t, cfg)
	truncate := func(ctx context.Context, src, dst string) (fileutil.CopyResult, error) {
		if err := os.WriteFile(dst, []byte("short"), 0o644); err != nil {
			return fileutil.CopyResult{}, err
		}
		return fileutil.CopyResult{Bytes: 5}, nil
	}

	summary, err := newRunner(t, cfg, store, func(o *workflow.Options) { o.Copy = truncate }).Run(context.Background())
	if err != nil {
		t.Fatalf("a failed copy must not abort the run: %v", err)
	}
	if len(summary.Archived) != 0 || len(summary.Failed) != 1 {
		t.Fatalf("archived=%d failed=%d, want 0/1", len(summary.Archived), len(summary.Failed))
	}
	if !errors.Is(summary.Failed[0].Err, archive.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", summary.Failed[0].Err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "2023-01-02", "b.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("truncated copy should be removed, stat err = %v", err)
	}
	for _, record := range mustRecords(t, store, catalog.Source) {
		if record.Archived || record.ArchivedAt != nil {
			t.Fatalf("%s marked archived after failed copy", record.Identity)
		}
	}
	pending, err := workflow.Pending(context.Background(), store)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if got := identities(pending); len(got) != 1 || got[0] != "b.jpg" {
		t.Fatalf("failed entry should stay pending, got %v", got)
	}
}

func TestRunCollisionKeepsLoserUnarchived(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	winner := testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "100", "b.jpg"), 50)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "101", "b.jpg"), 60)

	summary, err := newRunner(t, cfg, store, func(o *workflow.Options) { o.Workers = 1 }).Run(context.Background())
	if err != nil {
		t.Fatalf("a collision must not abort the run: %v", err)
	}
	if got := identities(summary.Archived); len(got) != 1 || got[0] != "100/b.jpg" {
		t.Fatalf("archived = %v, want [100/b.jpg]", got)
	}
	if len(summary.Failed) != 1 || !errors.Is(summary.Failed[0].Err, archive.ErrCollision) {
		t.Fatalf("expected one collision, got %#v", summary.Failed)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.TargetDir, "2023-01-02", "b.jpg"))
	if err != nil {
		t.Fatalf("read archived copy: %v", err)
	}
	if string(data) != string(winner) {
		t.Fatal("archived copy was overwritten by the colliding file")
	}
	for _, record := range mustRecords(t, store, catalog.Source) {
		if want := record.Identity == "100/b.jpg"; record.Archived != want {
			t.Fatalf("%s archived = %v, want %v", record.Identity, record.Archived, want)
		}
	}
}

func TestRunAbortsOnConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TargetDir, "a.jpg"), 100)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "a.jpg"), 90)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "b.jpg"), 50)

	summary, err := newRunner(t, cfg, store).Run(context.Background())
	if !errors.Is(err, matcher.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var conflictErr *matcher.ConflictError
	if !errors.As(err, &conflictErr) || len(conflictErr.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", err)
	}
	if summary.Worklist != nil {
		t.Fatalf("conflict must not produce a worklist: %v", identities(summary.Worklist))
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "2023-01-02", "b.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("nothing should be archived after a conflict, stat err = %v", err)
	}
	if got := mustRecords(t, store, catalog.Source); len(got) != 2 {
		t.Fatalf("source sync should stay committed, got %d records", len(got))
	}
}

func TestRunDryRunCopiesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedScenario(t, cfg)

	summary, err := newRunner(t, cfg, store, func(o *workflow.Options) { o.DryRun = true }).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.DryRun || len(summary.Archived) != 0 {
		t.Fatalf("dry run archived %v", identities(summary.Archived))
	}
	if got := identities(summary.Worklist); len(got) != 1 || got[0] != "b.jpg" {
		t.Fatalf("worklist = %v", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "2023-01-02")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run created a bucket, stat err = %v", err)
	}
	pending, err := workflow.Pending(context.Background(), store)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Archived {
		t.Fatalf("pending = %#v", pending)
	}
}

func TestRunRecordsEnrichFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "mystery.jpg"), 5)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "b.jpg"), 50)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "b.xmp"), 3)

	summary, err := newRunner(t, cfg, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Source.Scanned != 2 {
		t.Fatalf("sidecar should be skipped, scanned %d", summary.Source.Scanned)
	}
	if len(summary.Source.EnrichFailures) != 1 || summary.Source.EnrichFailures[0].Identity != "mystery.jpg" {
		t.Fatalf("enrich failures = %#v", summary.Source.EnrichFailures)
	}
	if got := identities(mustRecords(t, store, catalog.Source)); len(got) != 1 || got[0] != "b.jpg" {
		t.Fatalf("source catalog = %v", got)
	}
	if len(summary.Archived) != 1 {
		t.Fatalf("b.jpg should still archive, got %v", identities(summary.Archived))
	}
}

func TestRunWithoutSourceOnlySyncsTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutSource())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TargetDir, "a.jpg"), 100)

	summary, err := newRunner(t, cfg, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Source != nil {
		t.Fatalf("source summary should be nil, got %#v", summary.Source)
	}
	if summary.Target.New != 1 || len(summary.Worklist) != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRunKeepsStagingTablesWhenAsked(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprint(keep), func(t *testing.T) {
			var opts []testsupport.ConfigOption
			if keep {
				opts = append(opts, testsupport.WithKeepStaging())
			}
			cfg := testsupport.NewConfig(t, opts...)
			store := testsupport.MustOpenStore(t, cfg)
			seedScenario(t, cfg)

			if _, err := newRunner(t, cfg, store).Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			db, err := sql.Open("sqlite", store.Path())
			if err != nil {
				t.Fatalf("sql.Open: %v", err)
			}
			defer db.Close()
			var count int
			if err := db.QueryRow(
				"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name LIKE 'staging_%'",
			).Scan(&count); err != nil {
				t.Fatalf("query sqlite_master: %v", err)
			}
			want := 0
			if keep {
				want = 2
			}
			if count != want {
				t.Fatalf("staging tables = %d, want %d", count, want)
			}
		})
	}
}

func TestRunStagesDeduplicatedScan(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithKeepStaging())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "DCIM", "100", "c.jpg"), 20)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "DCIM", "101", "c.jpg"), 20)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "DCIM", "101", "a.jpg"), 30)

	if _, err := newRunner(t, cfg, store, func(o *workflow.Options) { o.DryRun = true }).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	rows, err := db.Query("SELECT path FROM staging_source ORDER BY path")
	if err != nil {
		t.Fatalf("query staging_source: %v", err)
	}
	defer rows.Close()
	var staged []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			t.Fatalf("scan: %v", err)
		}
		staged = append(staged, path)
	}
	if len(staged) != 2 || staged[0] != "DCIM/100/c.jpg" || staged[1] != "DCIM/101/a.jpg" {
		t.Fatalf("staging_source = %v, want the deduplicated set", staged)
	}
}

func TestRunFailsOnMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := os.RemoveAll(cfg.Paths.SourceDir); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	_, err := newRunner(t, cfg, store).Run(context.Background())
	if !errors.Is(err, scan.ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing, got %v", err)
	}
}

func TestNewRunnerRequiresTargetAndEnricher(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := workflow.NewRunner(store, workflow.Options{Enricher: dateEnricher{}}); err == nil {
		t.Fatal("expected error without target root")
	}
	if _, err := workflow.NewRunner(store, workflow.Options{TargetRoot: cfg.Paths.TargetDir}); err == nil {
		t.Fatal("expected error without enricher")
	}
	if _, err := workflow.NewRunner(nil, workflow.Options{TargetRoot: "x", Enricher: dateEnricher{}}); err == nil {
		t.Fatal("expected error without store")
	}
}
