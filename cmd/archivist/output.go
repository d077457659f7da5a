package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"

	"archivist/internal/archive"
	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/matcher"
	"archivist/internal/workflow"
)

func printSummary(out io.Writer, cfg *config.Config, summary workflow.Summary) {
	rows := make([][]string, 0, 2)
	for _, pass := range []*workflow.CatalogSummary{summary.Target, summary.Source} {
		if pass == nil {
			continue
		}
		rows = append(rows, []string{
			pass.Kind.String(),
			strconv.Itoa(pass.Scanned),
			strconv.Itoa(pass.DuplicateFiles),
			strconv.Itoa(pass.Removed),
			strconv.Itoa(pass.Kept),
			strconv.Itoa(pass.New),
			strconv.Itoa(pass.Enriched),
			strconv.Itoa(len(pass.EnrichFailures)),
			strconv.Itoa(len(pass.Skipped)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Catalog", "Scanned", "Duplicates", "Removed", "Kept", "New", "Enriched", "Enrich failed", "Skipped"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	switch {
	case summary.Source == nil:
		fmt.Fprintln(out, "No source directory given; target catalog refreshed only.")
	case summary.DryRun:
		fmt.Fprintf(out, "Dry run: %d file(s) would be archived.\n", len(summary.Worklist))
		if len(summary.Worklist) > 0 {
			fmt.Fprintln(out, renderWorklist(summary.Worklist, cfg.Paths.TargetDir))
		}
	default:
		var bytes uint64
		for _, record := range summary.Archived {
			bytes += record.Size
		}
		fmt.Fprintf(out, "Archived %d of %d file(s) (%s).\n",
			len(summary.Archived), len(summary.Worklist), humanize.IBytes(bytes))
		if len(summary.Failed) > 0 {
			rows := make([][]string, 0, len(summary.Failed))
			for _, failure := range summary.Failed {
				rows = append(rows, []string{failure.Record.Identity, failure.Err.Error()})
			}
			fmt.Fprintln(out, renderTable([]string{"Failed", "Reason"}, rows, nil))
		}
	}
}

func renderWorklist(worklist []catalog.Record, targetRoot string) string {
	rows := make([][]string, 0, len(worklist))
	var total uint64
	for _, record := range worklist {
		total += record.Size
		rows = append(rows, []string{
			record.Identity,
			record.TemporalKey,
			humanize.IBytes(record.Size),
			destination(targetRoot, record),
		})
	}
	rows = append(rows, []string{fmt.Sprintf("%d file(s)", len(worklist)), "", humanize.IBytes(total), ""})
	return renderTable(
		[]string{"Source", "Date", "Size", "Destination"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderConflicts(conflicts []matcher.Conflict) string {
	rows := make([][]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		rows = append(rows, []string{
			conflict.Name,
			conflict.TemporalKey,
			conflict.Source.Identity,
			humanize.Comma(int64(conflict.Source.Size)),
			conflict.Target.Identity,
			humanize.Comma(int64(conflict.Target.Size)),
		})
	}
	return renderTable(
		[]string{"Name", "Date", "Source", "Source bytes", "Target", "Target bytes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
}

func destination(targetRoot string, record catalog.Record) string {
	executor := archive.Executor{TargetRoot: targetRoot}
	return executor.Destination(record)
}
