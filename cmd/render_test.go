package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/config"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/usecase/aggregation"
)

func TestWriteRunReport(t *testing.T) {
	events := []event.Event{
		{Name: "FMS Chile J1", Date: "2025-10-04", Country: "Chile", Organizer: "Urban Roosters (FMS)"},
		{Name: "Red Bull Batalla Final", Date: "2025-11-30", Country: "Chile", Organizer: "Red Bull"},
		{Name: "God Level Fest", Date: "2025-09-20", Organizer: "God Level"},
	}
	result := aggregation.RunResult{
		Outcomes: []aggregation.SourceOutcome{
			{Source: "fms", Organizer: "Urban Roosters (FMS)", Fetched: 1, Written: 1, Live: true},
			{Source: "redbull", Organizer: "Red Bull", Fetched: 1, Written: 1, FallbackUsed: true, FailureReason: "http 503"},
		},
		Summary:  aggregation.Summarize(events, 5),
		Exported: []string{"data/eventos_freestyle.csv"},
	}

	var buf bytes.Buffer
	if err := writeRunReport(&buf, result); err != nil {
		t.Fatalf("writeRunReport() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total de eventos: 3",
		"fallback",
		"http 503",
		"Chile    2",
		"Unknown  1",
		"2025-09-20  God Level Fest (-)",
		"Exportado: data/eventos_freestyle.csv",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "God Level Fest") > strings.Index(out, "FMS Chile J1") {
		t.Fatalf("nearest events not ordered by date:\n%s", out)
	}
}

func TestWriteLastRunsMarksNeverRun(t *testing.T) {
	runs := []aggregation.LastRun{{
		RunID:         "run-1",
		FinishedAt:    "2025-08-01T10:00:00Z",
		SourceOutcome: aggregation.SourceOutcome{Source: "fms", Fetched: 4, Written: 4, Live: true},
	}}

	var buf bytes.Buffer
	if err := writeLastRuns(&buf, []string{"fms", "godlevel"}, runs); err != nil {
		t.Fatalf("writeLastRuns() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %#v", lines)
	}
	if !strings.Contains(lines[1], "2025-08-01T10:00:00Z") || !strings.Contains(lines[1], "live") {
		t.Fatalf("fms line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "never") {
		t.Fatalf("godlevel line = %q", lines[2])
	}
}

func TestParseOutput(t *testing.T) {
	for raw, want := range map[string]string{"": outputTable, "TABLE": outputTable, " json ": outputJSON} {
		got, err := parseOutput(raw)
		if err != nil || got != want {
			t.Fatalf("parseOutput(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := parseOutput("yaml"); err == nil {
		t.Fatalf("parseOutput(yaml) expected error")
	}
}

func TestDefaultExportPath(t *testing.T) {
	app := &bootstrap.App{Config: config.Config{Export: config.ExportConfig{
		CSVPath:  filepath.Join("out", "eventos.csv"),
		XLSXPath: filepath.Join("out", "calendario.xlsx"),
	}}}

	cases := map[aggregation.Format]string{
		"":                     filepath.Join("out", "eventos.csv"),
		aggregation.FormatCSV:  filepath.Join("out", "eventos.csv"),
		aggregation.FormatXLSX: filepath.Join("out", "calendario.xlsx"),
		aggregation.FormatPDF:  filepath.Join("out", "eventos.pdf"),
	}
	for format, want := range cases {
		if got := defaultExportPath(app, format); got != want {
			t.Fatalf("defaultExportPath(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestInitDbAndStatsCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: " + filepath.ToSlash(filepath.Join(dir, "events.db")) + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs(append(args, "--config", configPath, "--log-level", "error"))
		if err := Execute(context.Background()); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
		return out.String()
	}

	if out := run("init-db"); !strings.Contains(out, "(0 events stored)") {
		t.Fatalf("init-db output = %q", out)
	}
	if out := run("events", "stats"); !strings.Contains(out, "Total de eventos: 0") {
		t.Fatalf("events stats output = %q", out)
	}
}
