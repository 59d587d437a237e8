package cmd

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/catalog"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read stored events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored events ordered by date",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		output, _ := cmd.Flags().GetString("output")
		mode, err := parseOutput(output)
		if err != nil {
			return err
		}

		events, err := app.Catalog.List(ctx, filterFromFlags(cmd))
		if err != nil {
			logging.Error(ctx, "list events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list events")
		}

		if mode == outputJSON {
			return writeJSON(cmd.OutOrStdout(), events)
		}
		return writeEventsTable(cmd.OutOrStdout(), events)
	}),
}

var eventsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one stored event",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 64)
		if err != nil {
			return errs.Wrapf(err, "parse event id %q", cmd.Flags().Arg(0))
		}

		item, err := app.Catalog.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), item)
	}),
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored events per organizer and country",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		output, _ := cmd.Flags().GetString("output")
		mode, err := parseOutput(output)
		if err != nil {
			return err
		}

		stats, err := app.Catalog.Stats(ctx)
		if err != nil {
			logging.Error(ctx, "compute stats failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "compute stats")
		}

		if mode == outputJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		return writeStats(cmd.OutOrStdout(), stats)
	}),
}

var eventsUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List events dated today or later",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := app.Catalog.Upcoming(ctx, limit)
		if err != nil {
			return errs.Wrap(err, "list upcoming events")
		}
		return writeEventsTable(cmd.OutOrStdout(), events)
	}),
}

func filterFromFlags(cmd *cobra.Command) catalog.Filter {
	country, _ := cmd.Flags().GetString("country")
	organizer, _ := cmd.Flags().GetString("organizer")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return catalog.Filter{
		Country:   country,
		Organizer: organizer,
		DateFrom:  from,
		DateTo:    to,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("country", "", "Only events in this country (case-insensitive)")
	cmd.Flags().String("organizer", "", "Only events whose organizer contains this text")
	cmd.Flags().String("from", "", "Earliest date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Latest date, YYYY-MM-DD")
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd, eventsGetCmd, eventsStatsCmd, eventsUpcomingCmd)

	addFilterFlags(eventsListCmd)
	eventsListCmd.Flags().StringP("output", "o", outputTable, "Output format (table|json)")
	eventsStatsCmd.Flags().StringP("output", "o", outputTable, "Output format (table|json)")
	eventsUpcomingCmd.Flags().Int("limit", 5, "Maximum events to show (0 for all)")
}
