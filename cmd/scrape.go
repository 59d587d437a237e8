package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/aggregation"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch every source, store the events and export them",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		sources, _ := cmd.Flags().GetStringSlice("source")
		noExport, _ := cmd.Flags().GetBool("no-export")
		extra, _ := cmd.Flags().GetStringSlice("export")
		output, _ := cmd.Flags().GetString("output")

		mode, err := parseOutput(output)
		if err != nil {
			return err
		}

		input := aggregation.RunInput{Sources: sources}
		if !noExport {
			input.Exports = app.ExportTargets()
			for _, path := range extra {
				if path = strings.TrimSpace(path); path != "" {
					input.Exports = append(input.Exports, aggregation.ExportTarget{Path: path, Format: aggregation.FormatFromPath(path)})
				}
			}
		}

		result, err := app.Aggregation.Run(ctx, input)
		if err != nil {
			logging.Error(ctx, "scrape run failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "run aggregation")
		}

		if mode == outputJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		return writeRunReport(cmd.OutOrStdout(), result)
	}),
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().StringSlice("source", nil, "Only run these sources (repeatable, comma separated)")
	scrapeCmd.Flags().Bool("no-export", false, "Skip writing export files")
	scrapeCmd.Flags().StringSlice("export", nil, "Additional export file; format follows the extension (.csv|.xlsx|.pdf)")
	scrapeCmd.Flags().StringP("output", "o", outputTable, "Report format (table|json)")
}

// aggregationInputFor runs every configured source and writes the configured exports.
func aggregationInputFor(app *bootstrap.App) aggregation.RunInput {
	return aggregation.RunInput{Exports: app.ExportTargets()}
}
