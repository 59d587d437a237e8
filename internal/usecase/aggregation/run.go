package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

type RunInput struct {
	// Sources restricts the run to these source names; empty runs all.
	Sources []string
	// Exports maps output paths to their format. A run with no events
	// writes nothing.
	Exports []ExportTarget
}

type SourceOutcome struct {
	Source        string        `json:"source"`
	Organizer     string        `json:"organizer"`
	Fetched       int           `json:"fetched"`
	Written       int           `json:"written"`
	Failed        int           `json:"failed"`
	Discarded     int           `json:"discarded"`
	Live          bool          `json:"live"`
	FallbackUsed  bool          `json:"fallback_used"`
	FailureReason string        `json:"failure_reason,omitempty"`
	Duration      time.Duration `json:"duration"`
}

type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []SourceOutcome
	Events     []event.Event
	Summary    Summary
	Exported   []string
}

// LastRun is the bookkeeping kept per source between runs.
type LastRun struct {
	RunID      string `json:"run_id"`
	FinishedAt string `json:"finished_at"`
	SourceOutcome
}

// Run fetches every selected source in order and stores each source's
// events before moving on, so a later failure keeps earlier writes.
func (s *Service) Run(ctx context.Context, input RunInput) (RunResult, error) {
	if ctx == nil {
		return RunResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return RunResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return RunResult{}, errors.New("event repository is required")
	}

	sources, err := s.selectSources(input.Sources)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		RunID:     s.newRunID(),
		StartedAt: s.now(),
	}
	runCtx := logging.WithAttrs(
		logging.WithRun(ctx, result.RunID, ""),
		slog.String("component", "usecase.aggregation"),
	)
	logging.Info(runCtx, "aggregation run started", slog.Int("sources", len(sources)))

	for _, src := range sources {
		if err := runCtx.Err(); err != nil {
			result.FinishedAt = s.now()
			return result, errs.Wrap(err, "check context")
		}

		outcome, events, err := s.runSource(runCtx, result.RunID, src)
		result.Outcomes = append(result.Outcomes, outcome)
		result.Events = append(result.Events, events...)
		if err != nil {
			result.FinishedAt = s.now()
			return result, err
		}
	}

	result.Summary = Summarize(result.Events, nearestLimit)

	if len(result.Events) > 0 {
		for _, target := range input.Exports {
			if strings.TrimSpace(target.Path) == "" {
				continue
			}
			if err := ExportFile(runCtx, target, result.Events); err != nil {
				result.FinishedAt = s.now()
				return result, err
			}
			result.Exported = append(result.Exported, target.Path)
		}
	}

	result.FinishedAt = s.now()

	stored, err := s.repo.Count(runCtx)
	if err != nil {
		logging.Warn(runCtx, "count stored events failed", slog.Any("err", errs.Loggable(err)))
		stored = -1
	}
	if stored >= 0 {
		s.observer.ObserveRun(result.FinishedAt.Sub(result.StartedAt), stored)
	}

	logging.Info(
		runCtx,
		"aggregation run finished",
		slog.Int("events", result.Summary.Total),
		slog.Int64("stored", stored),
		slog.Int("exports", len(result.Exported)),
		slog.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (s *Service) runSource(ctx context.Context, runID string, src ports.EventSource) (SourceOutcome, []event.Event, error) {
	srcCtx := logging.WithRun(ctx, "", src.Name())
	started := s.now()

	fetched := src.Fetch(srcCtx)
	outcome := SourceOutcome{
		Source:        src.Name(),
		Organizer:     src.Organizer(),
		Fetched:       len(fetched.Events),
		Discarded:     fetched.Discarded,
		Live:          fetched.Live,
		FallbackUsed:  fetched.FallbackUsed,
		FailureReason: fetched.FailureReason,
	}

	var report ports.UpsertReport
	if len(fetched.Events) > 0 {
		var err error
		report, err = s.repo.UpsertMany(srcCtx, fetched.Events)
		outcome.Written = report.Written
		outcome.Failed = report.Failed
		if err != nil {
			outcome.Duration = s.now().Sub(started)
			return outcome, nil, errs.Wrapf(err, "store events from %s", src.Name())
		}
	}

	finished := s.now()
	outcome.Duration = finished.Sub(started)
	s.observer.ObserveSource(fetched, report, finished)

	attrs := []slog.Attr{
		slog.Int("fetched", outcome.Fetched),
		slog.Int("written", outcome.Written),
		slog.Int("failed", outcome.Failed),
		slog.Bool("live", outcome.Live),
		slog.Bool("fallback", outcome.FallbackUsed),
	}
	if outcome.FailureReason != "" {
		attrs = append(attrs, slog.String("reason", outcome.FailureReason))
	}
	logging.Info(srcCtx, "source finished", attrs...)

	s.recordLastRun(srcCtx, runID, finished, outcome)
	s.notify(srcCtx, runID, finished, outcome)

	return outcome, fetched.Events, nil
}

func (s *Service) recordLastRun(ctx context.Context, runID string, finished time.Time, outcome SourceOutcome) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(LastRun{
		RunID:         runID,
		FinishedAt:    finished.UTC().Format(time.RFC3339),
		SourceOutcome: outcome,
	})
	if err != nil {
		logging.Warn(ctx, "encode last run failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	if err := s.cache.Set(ctx, lastRunKeyPrefix+outcome.Source, string(raw), 0); err != nil {
		logging.Warn(ctx, "record last run failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) notify(ctx context.Context, runID string, finished time.Time, outcome SourceOutcome) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, ports.RunNotice{
		RunID:         runID,
		Source:        outcome.Source,
		Organizer:     outcome.Organizer,
		Fetched:       outcome.Fetched,
		Written:       outcome.Written,
		Failed:        outcome.Failed,
		Live:          outcome.Live,
		FallbackUsed:  outcome.FallbackUsed,
		FailureReason: outcome.FailureReason,
		FinishedAt:    finished.UTC().Format(time.RFC3339),
	})
	if err != nil {
		logging.Warn(ctx, "notify run failed", slog.Any("err", errs.Loggable(err)))
	}
}

// LastRuns returns the recorded outcome of each source that has run at
// least once, sorted by source name.
func (s *Service) LastRuns(ctx context.Context) ([]LastRun, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.cache == nil {
		return nil, nil
	}

	keys, err := s.cache.Keys(ctx, lastRunKeyPrefix)
	if err != nil {
		return nil, errs.Wrap(err, "list last runs")
	}

	out := make([]LastRun, 0, len(keys))
	for _, key := range keys {
		raw, found, err := s.cache.Get(ctx, key)
		if err != nil {
			return nil, errs.Wrapf(err, "get %s", key)
		}
		if !found {
			continue
		}
		var run LastRun
		if err := json.Unmarshal([]byte(raw), &run); err != nil {
			logging.Warn(ctx, "skip unreadable last run", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

func (s *Service) selectSources(names []string) ([]ports.EventSource, error) {
	if len(names) == 0 {
		return s.sources, nil
	}

	byName := make(map[string]ports.EventSource, len(s.sources))
	for _, src := range s.sources {
		byName[strings.ToLower(src.Name())] = src
	}

	selected := make([]ports.EventSource, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		src, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("%w %q", errUnknownSource, name)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, src)
	}
	return selected, nil
}
