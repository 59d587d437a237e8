package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("ParseLevel(verbose) expected error")
	}
}

func TestWithRunAttrsReachHandler(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(&buf, slog.LevelInfo, "text"))
	ctx = WithAttrs(ctx, slog.String("component", "test"))
	ctx = WithRun(ctx, "run-1", "fms")
	ctx = WithRun(ctx, "", "redbull")

	Info(ctx, "source finished", slog.Int("events", 7))
	Debug(ctx, "hidden")

	out := buf.String()
	for _, want := range []string{"component=test", "run_id=run-1", "source=redbull", "events=7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "source=fms") {
		t.Fatalf("log output kept overwritten attr: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line emitted at info level: %q", out)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, "JSON")
	logger.Info("hello")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("json logger output = %q", buf.String())
	}
}
