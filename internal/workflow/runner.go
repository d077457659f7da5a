package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"archivist/internal/archive"
	"archivist/internal/catalog"
	"archivist/internal/enrich"
	"archivist/internal/logging"
	"archivist/internal/matcher"
	"archivist/internal/reconcile"
	"archivist/internal/scan"
)

// Progress receives per-phase progress for enrichment and archival.
// Increment may be called from worker goroutines.
type Progress interface {
	Start(label string, total int)
	Increment()
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Increment()        {}
func (nopProgress) Finish()           {}

// Options configures a Runner.
type Options struct {
	// SourceRoot is optional. When empty only the target catalog is synced
	// and nothing is archived.
	SourceRoot string
	TargetRoot string
	Scan       scan.Options
	Workers    int
	// KeepStaging leaves the staging tables in the catalog for inspection.
	KeepStaging bool
	// DryRun syncs both catalogs and computes the worklist but copies nothing.
	DryRun   bool
	Enricher enrich.Enricher
	// Accept, when set, keeps unreadable file types away from the Enricher.
	// Rejected entries are reported as skipped instead of failed.
	Accept func(identity string) bool
	// Copy overrides the archive copy primitive.
	Copy     archive.CopyFunc
	Progress Progress
	Logger   *slog.Logger
	Now      func() time.Time
}

// CatalogSummary reports one sync pass.
type CatalogSummary struct {
	Kind    catalog.Kind
	Scanned int
	// Duplicates counts clusters; DuplicateFiles counts the members dropped.
	Duplicates     []reconcile.Cluster
	DuplicateFiles int
	Removed        int
	Kept           int
	New            int
	Enriched       int
	EnrichFailures []enrich.Failure
	Skipped        []string
}

// Summary reports one run.
type Summary struct {
	RunID    string
	Target   *CatalogSummary
	Source   *CatalogSummary
	Worklist []catalog.Record
	Archived []catalog.Record
	// ArchivedPaths holds the destination of each Archived record.
	ArchivedPaths []string
	Failed        []archive.Failure
	DryRun        bool
}

// Runner executes archival runs against one catalog store.
type Runner struct {
	store  *catalog.Store
	opts   Options
	logger *slog.Logger
}

// NewRunner validates opts and returns a Runner bound to store.
func NewRunner(store *catalog.Store, opts Options) (*Runner, error) {
	if store == nil {
		return nil, errors.New("workflow: catalog store is nil")
	}
	opts.TargetRoot = strings.TrimSpace(opts.TargetRoot)
	opts.SourceRoot = strings.TrimSpace(opts.SourceRoot)
	if opts.TargetRoot == "" {
		return nil, errors.New("workflow: target root is required")
	}
	if opts.Enricher == nil {
		return nil, errors.New("workflow: enricher is required")
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "workflow"),
	}, nil
}

// Run performs one full pass: target sync, source sync, match and archive.
// A returned error means the failing phase was rolled back; earlier phases
// stay committed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithContext(ctx, r.logger)
	runID, _ := logging.RunIDFromContext(ctx)
	summary := Summary{RunID: runID, DryRun: r.opts.DryRun}
	started := r.opts.Now()

	target, err := r.syncCatalog(ctx, catalog.Target, r.opts.TargetRoot)
	if err != nil {
		return summary, fmt.Errorf("sync target catalog: %w", err)
	}
	summary.Target = target

	if r.opts.SourceRoot != "" {
		source, err := r.syncCatalog(ctx, catalog.Source, r.opts.SourceRoot)
		if err != nil {
			return summary, fmt.Errorf("sync source catalog: %w", err)
		}
		summary.Source = source
	} else {
		logger.Info("no source root configured; skipping source sync",
			logging.String(logging.FieldEventType, "source_skipped"),
		)
	}

	worklist, err := r.Pending(ctx)
	if err != nil {
		return summary, err
	}
	summary.Worklist = worklist
	logger.Info("worklist computed",
		logging.String(logging.FieldEventType, "worklist_ready"),
		logging.Int("entries", len(worklist)),
	)

	switch {
	case r.opts.SourceRoot == "":
		logger.Info("archival skipped without a source root")
	case r.opts.DryRun:
		logger.Info("dry run; nothing copied",
			logging.String(logging.FieldEventType, "dry_run"),
			logging.Int("entries", len(worklist)),
		)
	default:
		if err := r.archive(ctx, &summary); err != nil {
			return summary, err
		}
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("archived", len(summary.Archived)),
		logging.Int("failed", len(summary.Failed)),
		logging.Duration("elapsed", r.opts.Now().Sub(started)),
	)
	return summary, nil
}

// Pending matches the stored source catalog against the stored target catalog
// without scanning either root.
func (r *Runner) Pending(ctx context.Context) ([]catalog.Record, error) {
	return Pending(ctx, r.store)
}

// Pending returns the current worklist of store. A conflict between the two
// catalogs is returned as a *matcher.ConflictError.
func Pending(ctx context.Context, store *catalog.Store) ([]catalog.Record, error) {
	source, err := store.Records(ctx, catalog.Source)
	if err != nil {
		return nil, err
	}
	target, err := store.Records(ctx, catalog.Target)
	if err != nil {
		return nil, err
	}
	worklist, err := matcher.Match(source, target)
	if err != nil {
		return nil, fmt.Errorf("match catalogs: %w", err)
	}
	return worklist, nil
}

func (r *Runner) archive(ctx context.Context, summary *Summary) error {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldPhase, "archive"))
	if len(summary.Worklist) == 0 {
		logger.Info("nothing to archive")
		return nil
	}

	executor := &archive.Executor{
		SourceRoot: r.opts.SourceRoot,
		TargetRoot: r.opts.TargetRoot,
		Copy:       r.opts.Copy,
		Logger:     logging.WithContext(ctx, r.opts.Logger),
	}
	r.opts.Progress.Start("archiving", len(summary.Worklist))
	batch, err := executor.Run(ctx, summary.Worklist, r.opts.Workers, r.opts.Progress.Increment)
	r.opts.Progress.Finish()
	if err != nil {
		return fmt.Errorf("archive worklist: %w", err)
	}
	summary.Archived = batch.Archived
	summary.ArchivedPaths = batch.Paths
	summary.Failed = batch.Failed

	if len(batch.Archived) == 0 {
		return nil
	}
	identities := make([]string, 0, len(batch.Archived))
	for _, record := range batch.Archived {
		identities = append(identities, record.Identity)
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	marked, err := tx.MarkArchived(ctx, identities, r.opts.Now())
	if err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("archive phase committed",
		logging.String(logging.FieldEventType, "archive_complete"),
		logging.Int64("marked", marked),
		logging.Int("failed", len(batch.Failed)),
	)
	return nil
}
