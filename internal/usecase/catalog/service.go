package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

// Service answers read queries over the stored events.
type Service struct {
	repo ports.EventRepository
	now  func() time.Time
}

func NewService(repo ports.EventRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the clock that decides which events are upcoming.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns stored events matching f, ordered by date.
func (s *Service) List(ctx context.Context, f Filter) ([]event.Event, error) {
	events, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if f.IsZero() {
		return events, nil
	}

	filtered := Apply(events, f)
	logging.Debug(
		logging.WithAttrs(ctx, slog.String("component", "usecase.catalog")),
		"events filtered",
		slog.Int("stored", len(events)),
		slog.Int("matched", len(filtered)),
	)
	return filtered, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (event.Event, error) {
	if ctx == nil {
		return event.Event{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return event.Event{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return event.Event{}, errors.New("event repository is required")
	}

	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return event.Event{}, errs.Wrapf(err, "get event %d", id)
	}
	return found, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	events, err := s.all(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(events, s.now()), nil
}

// Upcoming returns at most limit events dated today or later; a
// non-positive limit returns all of them.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]event.Event, error) {
	events, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	upcoming := UpcomingFrom(events, s.now())
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

func (s *Service) Facets(ctx context.Context) (Facets, error) {
	events, err := s.all(ctx)
	if err != nil {
		return Facets{}, err
	}
	return FacetsOf(events), nil
}

func (s *Service) all(ctx context.Context) ([]event.Event, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("event repository is required")
	}

	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list events")
	}
	return events, nil
}
