package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

// DelayFunc waits between requests to the same promoter. It must return
// early with the context error when ctx is done.
type DelayFunc func(ctx context.Context) error

type Option func(*Adapter)

// WithDelay waits a uniformly random duration in [lo, hi] before each page.
func WithDelay(lo, hi time.Duration) Option {
	return func(a *Adapter) {
		a.delay = RandomDelay(lo, hi)
	}
}

func WithDelayFunc(fn DelayFunc) Option {
	return func(a *Adapter) {
		if fn != nil {
			a.delay = fn
		}
	}
}

// Adapter turns one promoter profile into an event source: probe the
// listing pages, extract and validate, and fall back to the profile's
// known events when nothing usable comes back.
type Adapter struct {
	profile Profile
	fetcher ports.PageFetcher
	delay   DelayFunc
}

var _ ports.EventSource = (*Adapter)(nil)

func NewAdapter(profile Profile, fetcher ports.PageFetcher, opts ...Option) *Adapter {
	a := &Adapter{
		profile: profile,
		fetcher: fetcher,
		delay:   RandomDelay(time.Second, 3*time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAdapters builds one adapter per profile, in order.
func NewAdapters(profiles []Profile, fetcher ports.PageFetcher, opts ...Option) []ports.EventSource {
	out := make([]ports.EventSource, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, NewAdapter(p, fetcher, opts...))
	}
	return out
}

func (a *Adapter) Name() string      { return a.profile.Name }
func (a *Adapter) Organizer() string { return a.profile.Organizer }
func (a *Adapter) Profile() Profile  { return a.profile }

func (a *Adapter) Fetch(ctx context.Context) ports.SourceResult {
	result := ports.SourceResult{Source: a.profile.Name, Organizer: a.profile.Organizer}
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "scraper.adapter"),
		slog.String("source", a.profile.Name),
	)

	live, discarded, err := a.scrapeLive(ctx)
	result.Discarded = discarded
	if err != nil {
		result.FailureReason = err.Error()
	}
	if len(live) > 0 {
		result.Events = live
		result.Live = true
		if err != nil {
			logging.Warn(logCtx, "some listing pages failed", slog.Any("err", errs.Loggable(err)))
		}
		logging.Info(logCtx, "live events extracted", slog.Int("events", len(live)), slog.Int("discarded", discarded))
		return result
	}

	if result.FailureReason == "" {
		result.FailureReason = "no valid events on listing pages"
	}
	result.Events = a.fallbackEvents()
	result.FallbackUsed = true
	logging.Warn(logCtx, "using fallback events",
		slog.String("reason", result.FailureReason),
		slog.Int("events", len(result.Events)),
	)
	return result
}

func (a *Adapter) scrapeLive(ctx context.Context) ([]event.Event, int, error) {
	var (
		out       []event.Event
		discarded int
		failures  []error
	)
	seen := make(map[event.Key]struct{})

	for _, page := range a.profile.Pages {
		if err := a.delay(ctx); err != nil {
			failures = append(failures, errs.Wrap(err, "wait before request"))
			break
		}

		fetched, err := a.fetcher.Fetch(ctx, page.URL)
		if err != nil {
			failures = append(failures, errs.Wrapf(err, "fetch %s", page.URL))
			continue
		}

		candidates, err := a.profile.extractPage(fetched.Body, page)
		if err != nil {
			failures = append(failures, errs.Wrapf(err, "extract %s", page.URL))
			continue
		}

		for _, candidate := range candidates {
			if !event.Validate(&candidate) {
				discarded++
				continue
			}
			if _, dup := seen[candidate.Key()]; dup {
				continue
			}
			seen[candidate.Key()] = struct{}{}
			out = append(out, candidate)
		}
	}

	return out, discarded, errors.Join(failures...)
}

func (a *Adapter) fallbackEvents() []event.Event {
	out := make([]event.Event, 0, len(a.profile.Fallback))
	for _, fb := range a.profile.Fallback {
		candidate := fb.toEvent(a.profile.Organizer)
		if event.Validate(&candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// RandomDelay sleeps for a uniformly random duration in [lo, hi].
func RandomDelay(lo, hi time.Duration) DelayFunc {
	return func(ctx context.Context) error {
		if ctx == nil {
			return errors.New("context is required")
		}
		wait := lo
		if hi > lo {
			wait += time.Duration(rand.Int63n(int64(hi - lo + 1)))
		}
		if wait <= 0 {
			return ctx.Err()
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
