package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/enrich"
	"archivist/internal/logging"
	"archivist/internal/matcher"
	"archivist/internal/preflight"
	"archivist/internal/scan"
	"archivist/internal/workflow"
)

func runArchive(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := ctx.loggerValue()
	if err != nil {
		return err
	}

	runCtx := logging.WithRunID(cmd.Context(), logging.NewRunID())
	if err := preflight.FirstFailure(preflight.RequiredChecks(cfg)); err != nil {
		return err
	}

	store, err := catalog.Open(runCtx, cfg.Paths.CatalogPath, catalog.Options{Reset: flags.clean, Logger: logger})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	runner, err := workflow.NewRunner(store, runnerOptions(cfg, flags, cmd.ErrOrStderr(), logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summary, err := runner.Run(runCtx)
	if err != nil {
		var conflictErr *matcher.ConflictError
		if errors.As(err, &conflictErr) {
			fmt.Fprintln(out, renderConflicts(conflictErr.Conflicts))
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("archive run failed: %w", err)
	}
	printSummary(out, cfg, summary)
	return nil
}

func runnerOptions(cfg *config.Config, flags runFlags, progressOut io.Writer, logger *slog.Logger) workflow.Options {
	return workflow.Options{
		SourceRoot: cfg.Paths.SourceDir,
		TargetRoot: cfg.Paths.TargetDir,
		Scan: scan.Options{
			SkipExtensions: cfg.Scan.SkipExtensions,
			IgnorePatterns: cfg.Scan.IgnorePatterns,
		},
		Workers:     cfg.EffectiveWorkers(),
		KeepStaging: flags.leave || cfg.Workflow.KeepStagingTables,
		DryRun:      flags.dryRun,
		Enricher:    newEnricher(cfg),
		Accept:      enrich.Supported,
		Progress:    newProgress(progressOut, logger),
		Logger:      logger,
	}
}
