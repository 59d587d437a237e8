package ports

import (
	"context"
	"errors"

	"freestylecal/internal/domain/event"
)

var ErrEventNotFound = errors.New("event not found")

// UpsertReport counts how a batch write went. Failures are per record and
// never abort the batch.
type UpsertReport struct {
	Written int
	Failed  int
	Errors  []error
}

type EventRepository interface {
	// UpsertMany inserts each event or replaces the row sharing its
	// (name, date, organizer) key. The returned error is reserved for
	// failures that stop the whole batch.
	UpsertMany(ctx context.Context, events []event.Event) (UpsertReport, error)
	// ListAll returns every stored event ordered by date, then id.
	ListAll(ctx context.Context) ([]event.Event, error)
	GetByID(ctx context.Context, id uint64) (event.Event, error)
	Count(ctx context.Context) (int64, error)
}
