package aggregation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"freestylecal/internal/ports"
)

const (
	lastRunKeyPrefix = "last_run:"
	nearestLimit     = 5
)

var errUnknownSource = errors.New("unknown source")

// Observer receives per-source and per-run measurements.
type Observer interface {
	ObserveSource(result ports.SourceResult, report ports.UpsertReport, finishedAt time.Time)
	ObserveRun(duration time.Duration, stored int64)
}

type Service struct {
	repo     ports.EventRepository
	sources  []ports.EventSource
	cache    ports.Cache
	notifier ports.Notifier
	observer Observer
	now      func() time.Time
	newRunID func() string
}

type Option func(*Service)

func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRunIDs(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newRunID = next
		}
	}
}

// NewService wires the runner with its store and sources. cache and
// notifier are optional.
func NewService(repo ports.EventRepository, sources []ports.EventSource, cache ports.Cache, notifier ports.Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		sources:  sources,
		cache:    cache,
		notifier: notifier,
		observer: noopObserver{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources lists the registered source names in run order.
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

type noopObserver struct{}

func (noopObserver) ObserveSource(ports.SourceResult, ports.UpsertReport, time.Time) {}
func (noopObserver) ObserveRun(time.Duration, int64)                                 {}
