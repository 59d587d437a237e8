package ports

import (
	"context"

	"freestylecal/internal/domain/event"
)

// SourceResult is what one promoter source yields for a run.
type SourceResult struct {
	Source    string
	Organizer string
	Events    []event.Event
	// Live is true when Events came from the promoter's page.
	Live          bool
	FallbackUsed  bool
	FailureReason string
	// Discarded counts extracted records that failed validation.
	Discarded int
}

// EventSource never fails: problems reaching or reading the promoter's page
// are reported through FailureReason and answered with the fallback table.
type EventSource interface {
	Name() string
	Organizer() string
	Fetch(ctx context.Context) SourceResult
}
