package archive

import (
	"context"

	"golang.org/x/sync/errgroup"

	"archivist/internal/catalog"
	"archivist/internal/logging"
)

// Failure records one entry that could not be archived.
type Failure struct {
	Record catalog.Record
	Err    error
}

// Batch is the result of archiving a worklist.
type Batch struct {
	// Archived lists the records that copied and verified, in worklist order.
	Archived []catalog.Record
	// Paths holds the archived destination of each Archived record.
	Paths  []string
	Failed []Failure
}

// Run archives every record in worklist with at most workers concurrent
// copies. Per-entry failures never stop the batch; only cancellation is
// returned as an error. tick, when non-nil, is called once per finished entry.
func (e *Executor) Run(ctx context.Context, worklist []catalog.Record, workers int, tick func()) (Batch, error) {
	logger := logging.NewComponentLogger(e.Logger, "archive")
	if workers <= 0 {
		workers = 1
	}

	paths := make([]string, len(worklist))
	errs := make([]error, len(worklist))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, record := range worklist {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if tick != nil {
					tick()
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			paths[i], errs[i] = e.Archive(gctx, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	var batch Batch
	for i, record := range worklist {
		if errs[i] != nil {
			batch.Failed = append(batch.Failed, Failure{Record: record, Err: errs[i]})
			logging.WarnWithContext(logger, "archive failed", eventType(errs[i]),
				logging.Path(record.Identity),
				logging.String("destination", e.Destination(record)),
				logging.String(logging.FieldErrorHint, hint(errs[i])),
				logging.String(logging.FieldImpact, "source stays unarchived and is retried next run"),
				logging.Error(errs[i]),
			)
			continue
		}
		batch.Archived = append(batch.Archived, record)
		batch.Paths = append(batch.Paths, paths[i])
		logger.Debug("archived", logging.Path(record.Identity), logging.String("destination", paths[i]))
	}
	return batch, nil
}
