package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"archivist/internal/catalog"
	"archivist/internal/workflow"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the catalog database without scanning",
	}
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogPendingCommand(ctx))
	return catalogCmd
}

// withStore opens the configured catalog for the duration of fn.
func withStore(cmd *cobra.Command, ctx *commandContext, fn func(*catalog.Store) error) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := ctx.loggerValue()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cmd.Context(), cfg.Paths.CatalogPath, catalog.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

type statsJSON struct {
	Catalog  string `json:"catalog"`
	Records  int    `json:"records"`
	Archived int    `json:"archived"`
	Bytes    uint64 `json:"bytes"`
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and sizes for both catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, ctx, func(store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]statsJSON, 0, len(stats))
					for _, s := range stats {
						out = append(out, statsJSON{Catalog: s.Kind.String(), Records: s.Records, Archived: s.Archived, Bytes: s.Bytes})
					}
					return writeJSON(cmd, out)
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					archived := "-"
					if s.Kind == catalog.Source {
						archived = strconv.Itoa(s.Archived)
					}
					rows = append(rows, []string{s.Kind.String(), humanize.Comma(int64(s.Records)), archived, humanize.IBytes(s.Bytes)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog: %s\n", store.Path())
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Catalog", "Records", "Archived", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type pendingJSON struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Size        uint64 `json:"size"`
	Destination string `json:"destination"`
}

func newCatalogPendingCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List source files the last sync found missing from the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig(ctx)
			if err != nil {
				return err
			}
			return withStore(cmd, ctx, func(store *catalog.Store) error {
				worklist, err := workflow.Pending(cmd.Context(), store)
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]pendingJSON, 0, len(worklist))
					for _, record := range worklist {
						out = append(out, pendingJSON{
							Path:        record.Identity,
							Name:        record.DisplayName(),
							Date:        record.TemporalKey,
							Size:        record.Size,
							Destination: destination(cfg.Paths.TargetDir, record),
						})
					}
					return writeJSON(cmd, out)
				}
				if len(worklist) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing pending; the archive holds every cataloged source file.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderWorklist(worklist, cfg.Paths.TargetDir))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
