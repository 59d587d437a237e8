package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func parseOutput(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unsupported output %q (table|json)", raw)
	}
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return errs.Wrap(err, "encode json output")
	}
	return nil
}

func writeRunReport(w io.Writer, result aggregation.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "source\torganizer\tfetched\twritten\tfailed\tmode\treason")
	for _, outcome := range result.Outcomes {
		mode := "live"
		if outcome.FallbackUsed {
			mode = "fallback"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			outcome.Source,
			outcome.Organizer,
			outcome.Fetched,
			outcome.Written,
			outcome.Failed,
			mode,
			dashIfEmpty(outcome.FailureReason),
		)
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "write run outcomes")
	}

	fmt.Fprintf(w, "\nTotal de eventos: %d\n", result.Summary.Total)
	if err := writeCounts(w, "Por organizador", result.Summary.ByOrganizer); err != nil {
		return err
	}
	if err := writeCounts(w, "Por país", result.Summary.ByCountry); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nPróximos eventos:")
	if len(result.Summary.Nearest) == 0 {
		fmt.Fprintln(w, "  -")
	}
	for _, e := range result.Summary.Nearest {
		fmt.Fprintf(w, "  %s  %s (%s)\n", e.Date, e.Name, dashIfEmpty(e.Country))
	}

	for _, path := range result.Exported {
		fmt.Fprintf(w, "\nExportado: %s", path)
	}
	if len(result.Exported) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

func writeCounts(w io.Writer, title string, counts []event.Count) error {
	if _, err := fmt.Fprintf(w, "\n%s:\n", title); err != nil {
		return errs.Wrap(err, "write counts header")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Key, c.Count)
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "write counts")
	}
	return nil
}

func writeEventsTable(w io.Writer, events []event.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tdate\ttime\tname\tcity\tcountry\torganizer")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			dashIfEmpty(e.Date),
			dashIfEmpty(e.Time),
			e.Name,
			dashIfEmpty(e.City),
			dashIfEmpty(e.Country),
			e.Organizer,
		)
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "write events table")
	}
	return nil
}

func writeStats(w io.Writer, stats catalog.Stats) error {
	if _, err := fmt.Fprintf(w, "Total de eventos: %d\nPróximos: %d\n", stats.Total, stats.Upcoming); err != nil {
		return errs.Wrap(err, "write stats")
	}
	if err := writeCounts(w, "Por organizador", stats.ByOrganizer); err != nil {
		return err
	}
	return writeCounts(w, "Por país", stats.ByCountry)
}

func writeLastRuns(w io.Writer, sources []string, runs []aggregation.LastRun) error {
	bySource := make(map[string]aggregation.LastRun, len(runs))
	for _, run := range runs {
		bySource[run.Source] = run
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tlast_run\tfetched\twritten\tmode\treason")
	for _, name := range sources {
		run, ok := bySource[name]
		if !ok {
			fmt.Fprintf(tw, "%s\tnever\t-\t-\t-\t-\n", name)
			continue
		}
		mode := "live"
		if run.FallbackUsed {
			mode = "fallback"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", name, run.FinishedAt, run.Fetched, run.Written, mode, dashIfEmpty(run.FailureReason))
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "write sources table")
	}
	return nil
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func replaceExt(path string, ext string) string {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "eventos_freestyle.csv")
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
