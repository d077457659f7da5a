package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"archivist/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the catalog lock and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig(ctx)
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			colorize := isTerminal(cmd.OutOrStdout())
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, statusLabel(result, colorize), result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			return preflight.FirstFailure(results)
		},
	}
}

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func statusLabel(result preflight.Result, colorize bool) string {
	label, color := "ok", ansiGreen
	switch {
	case result.Passed:
	case result.Optional:
		label, color = "warn", ansiYellow
	default:
		label, color = "fail", ansiRed
	}
	if !colorize {
		return label
	}
	return color + label + ansiReset
}
