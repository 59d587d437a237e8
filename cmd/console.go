package cmd

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/browseconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Browse stored events in a terminal console",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		upcoming, _ := cmd.Flags().GetBool("upcoming")
		readOnly, _ := cmd.Flags().GetBool("read-only")

		options := browseconsole.Options{RefreshInterval: refreshInterval}
		if upcoming {
			options.UpcomingFrom = time.Now()
		}

		var runner browseconsole.Runner
		if !readOnly {
			runner = consoleRunner{app: app}
		}

		model := browseconsole.NewBrowseModel(ctx, app.Catalog, runner, options)
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run console")
		}
		return nil
	}),
}

// consoleRunner scrapes with the configured exports.
type consoleRunner struct {
	app *bootstrap.App
}

func (r consoleRunner) Run(ctx context.Context, input aggregation.RunInput) (aggregation.RunResult, error) {
	if len(input.Exports) == 0 {
		input.Exports = aggregationInputFor(r.app).Exports
	}
	return r.app.Aggregation.Run(ctx, input)
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Duration("refresh-interval", 30*time.Second, "Auto refresh interval")
	consoleCmd.Flags().Bool("upcoming", false, "Hide events dated before today")
	consoleCmd.Flags().Bool("read-only", false, "Disable the scrape key")
}
