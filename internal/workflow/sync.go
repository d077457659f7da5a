package workflow

import (
	"context"
	"fmt"
	"time"

	"archivist/internal/catalog"
	"archivist/internal/enrich"
	"archivist/internal/logging"
	"archivist/internal/reconcile"
	"archivist/internal/scan"
)

// syncCatalog reconciles the catalog of kind with the files under root inside
// a single transaction.
func (r *Runner) syncCatalog(ctx context.Context, kind catalog.Kind, root string) (*CatalogSummary, error) {
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldCatalog, kind.String()),
		logging.String(logging.FieldPhase, "sync"),
	)
	started := time.Now()
	summary := &CatalogSummary{Kind: kind}

	scanOpts := r.opts.Scan
	scanOpts.Logger = logging.WithContext(ctx, r.opts.Logger)
	entries, err := scan.Walk(ctx, root, scanOpts)
	if err != nil {
		return nil, err
	}
	summary.Scanned = len(entries)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	kept, clusters := reconcile.Dedupe(entries)
	summary.Duplicates = clusters
	for _, cluster := range clusters {
		summary.DuplicateFiles += len(cluster.Paths) - 1
		logging.WarnWithContext(logger, "duplicate files", "duplicate_cluster",
			logging.String("name", cluster.Name),
			logging.Uint64("size", cluster.Size),
			logging.Any("paths", cluster.Paths),
			logging.String("kept", cluster.Paths[0]),
			logging.String(logging.FieldErrorHint, "remove the extra copies if they are the same file"),
			logging.String(logging.FieldImpact, "only the kept path is cataloged"),
		)
	}

	if err := tx.Stage(ctx, kind, kept); err != nil {
		return nil, err
	}

	durable, err := tx.Records(ctx, kind)
	if err != nil {
		return nil, err
	}
	diff := reconcile.Diff(durable, kept)
	summary.Kept = diff.Kept
	summary.New = len(diff.New)

	removed, err := tx.DeleteRecords(ctx, kind, diff.Removed)
	if err != nil {
		return nil, err
	}
	summary.Removed = int(removed)

	pool := enrich.Pool{
		Enricher: r.opts.Enricher,
		Workers:  r.opts.Workers,
		Logger:   logging.WithContext(ctx, r.opts.Logger),
		Accept:   r.opts.Accept,
		Tick:     r.opts.Progress.Increment,
	}
	if len(diff.New) > 0 {
		r.opts.Progress.Start(fmt.Sprintf("enriching %s", kind), len(diff.New))
	}
	outcome, err := pool.Run(ctx, root, diff.New)
	if len(diff.New) > 0 {
		r.opts.Progress.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("enrich %s entries: %w", kind, err)
	}
	summary.Enriched = len(outcome.Records)
	summary.EnrichFailures = outcome.Failures
	summary.Skipped = outcome.Skipped

	if err := tx.InsertRecords(ctx, kind, outcome.Records); err != nil {
		return nil, err
	}
	if !r.opts.KeepStaging {
		if err := tx.DropStaging(ctx, kind); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.Info("catalog synced",
		logging.String(logging.FieldEventType, "catalog_synced"),
		logging.Int("scanned", summary.Scanned),
		logging.Int("duplicates", summary.DuplicateFiles),
		logging.Int("removed", summary.Removed),
		logging.Int("kept", summary.Kept),
		logging.Int("new", summary.New),
		logging.Int("enriched", summary.Enriched),
		logging.Int("enrich_failures", len(summary.EnrichFailures)),
		logging.Int("skipped", len(summary.Skipped)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}
