package enrich

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"archivist/internal/catalog"
	"archivist/internal/logging"
)

// Failure records one entry that could not be enriched.
type Failure struct {
	Identity string
	Err      error
}

// Outcome holds the result of enriching one batch.
type Outcome struct {
	// Records are the enriched entries in input order.
	Records  []catalog.Record
	Failures []Failure
	// Skipped lists identities rejected by Pool.Accept; they are not cataloged.
	Skipped []string
}

// Pool enriches entries concurrently.
type Pool struct {
	Enricher Enricher
	Workers  int
	Logger   *slog.Logger
	// Accept, when set, filters entries before they reach the Enricher.
	Accept func(identity string) bool
	// Tick, when set, is called once per finished entry from worker goroutines.
	Tick func()
}

// Run enriches every entry below root. Per-entry failures land in
// Outcome.Failures; the only returned error is context cancellation.
func (p Pool) Run(ctx context.Context, root string, entries []catalog.BasicEntry) (Outcome, error) {
	logger := logging.NewComponentLogger(p.Logger, "enrich")
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	records := make([]catalog.Record, len(entries))
	errs := make([]error, len(entries))
	skipped := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer p.tick()
			if err := gctx.Err(); err != nil {
				return err
			}
			if p.Accept != nil && !p.Accept(entry.Identity) {
				skipped[i] = true
				return nil
			}
			abs := filepath.Join(root, filepath.FromSlash(entry.Identity))
			takenAt, err := p.Enricher.Enrich(gctx, abs)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = catalog.NewRecord(entry, takenAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Records: make([]catalog.Record, 0, len(entries))}
	for i, entry := range entries {
		if skipped[i] {
			outcome.Skipped = append(outcome.Skipped, entry.Identity)
			logger.Debug("no metadata reader for file type", logging.Path(entry.Identity))
			continue
		}
		if errs[i] != nil {
			outcome.Failures = append(outcome.Failures, Failure{Identity: entry.Identity, Err: errs[i]})
			logging.WarnWithContext(logger, "enrichment failed", "enrich_failed",
				logging.Path(entry.Identity),
				logging.String(logging.FieldErrorHint, "check the file carries EXIF or creation_time metadata"),
				logging.String(logging.FieldImpact, "file is not cataloged this run and will be retried"),
				logging.Error(errs[i]),
			)
			continue
		}
		outcome.Records = append(outcome.Records, records[i])
	}
	return outcome, nil
}

func (p Pool) tick() {
	if p.Tick != nil {
		p.Tick()
	}
}
