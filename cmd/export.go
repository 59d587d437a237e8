package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/aggregation"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored events to a CSV, XLSX or PDF file",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		rawFormat, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		var format aggregation.Format
		if rawFormat != "" {
			parsed, err := aggregation.ParseFormat(rawFormat)
			if err != nil {
				return err
			}
			format = parsed
		}
		if out == "" {
			out = defaultExportPath(app, format)
		}
		if format == "" {
			format = aggregation.FormatFromPath(out)
		}

		events, err := app.Catalog.List(ctx, filterFromFlags(cmd))
		if err != nil {
			return errs.Wrap(err, "list events for export")
		}
		if len(events) == 0 {
			logging.Warn(ctx, "no events to export")
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "no events to export")
			return errs.Wrap(err, "write export output")
		}

		if err := aggregation.ExportFile(ctx, aggregation.ExportTarget{Path: out, Format: format}, events); err != nil {
			logging.Error(ctx, "export failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export events")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %d events to %s\n", len(events), out); err != nil {
			return errs.Wrap(err, "write export output")
		}
		return nil
	}),
}

// defaultExportPath picks the configured path for format, falling back to
// the CSV path with the format's extension.
func defaultExportPath(app *bootstrap.App, format aggregation.Format) string {
	switch format {
	case aggregation.FormatXLSX:
		if app.Config.Export.XLSXPath != "" {
			return app.Config.Export.XLSXPath
		}
	case aggregation.FormatPDF:
		if app.Config.Export.PDFPath != "" {
			return app.Config.Export.PDFPath
		}
	case aggregation.FormatCSV, "":
		return app.Config.Export.CSVPath
	}
	return replaceExt(app.Config.Export.CSVPath, "."+string(format))
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addFilterFlags(exportCmd)
	exportCmd.Flags().String("format", "", "Export format (csv|xlsx|pdf); defaults to the --out extension")
	exportCmd.Flags().String("out", "", "Output file; defaults to the configured export path")
}
