package main

import (
	"github.com/spf13/cobra"
)

type runFlags struct {
	clean  bool
	dryRun bool
	leave  bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var flags runFlags

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "archivist [flags] [source_dir]",
		Short: "Catalog a camera card and archive new files by capture date",
		Long: `archivist keeps a catalog of the target archive and of the source card,
copies every source file the archive is missing into <target>/<YYYY-MM-DD>/
and verifies each copy before marking it archived.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			var source string
			if cmd == cmd.Root() && len(args) == 1 {
				source = args[0]
			}
			_, err := ctx.ensureConfig(cmd, source)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, ctx, flags)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&configFlag, "config", "", "Configuration file path")
	persistent.String("target", "", "Archive root (overrides paths.target_dir and "+envTargetHint+")")
	persistent.String("db", "", "Catalog database path (overrides paths.catalog_path and "+envCatalogHint+")")
	persistent.Int("workers", 0, "Concurrent enrichment and copy workers (0 = one per CPU)")
	persistent.String("log-level", "", "Log level: debug, info, warn, error")
	persistent.String("log-format", "", "Log format: console or json")

	local := rootCmd.Flags()
	local.BoolVarP(&flags.clean, "clean", "c", false, "Wipe the catalog database before running (destructive)")
	local.BoolVarP(&flags.dryRun, "dry-run", "d", false, "Sync catalogs and print the worklist without copying")
	local.BoolVarP(&flags.leave, "leave", "l", false, "Leave the staging tables in the catalog for inspection")

	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
