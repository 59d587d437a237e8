package cmd

import (
	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/errs"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their last run",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		runs, err := app.Aggregation.LastRuns(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "load last runs")
		}
		return writeLastRuns(cmd.OutOrStdout(), app.Aggregation.Sources(), runs)
	}),
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
