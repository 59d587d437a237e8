package aggregation

import (
	"slices"
	"strings"

	"freestylecal/internal/domain/event"
)

type Summary struct {
	Total       int           `json:"total"`
	ByOrganizer []event.Count `json:"by_organizer"`
	ByCountry   []event.Count `json:"by_country"`
	Nearest     []event.Event `json:"nearest"`
}

// Summarize counts events per organizer and per country and picks the
// earliest dated events.
func Summarize(events []event.Event, nearest int) Summary {
	return Summary{
		Total:       len(events),
		ByOrganizer: event.CountBy(events, event.ByOrganizer),
		ByCountry:   event.CountBy(events, event.ByCountry),
		Nearest:     Nearest(events, nearest),
	}
}

// Nearest returns up to limit events with a date, ordered by date.
func Nearest(events []event.Event, limit int) []event.Event {
	if limit <= 0 {
		return nil
	}
	dated := make([]event.Event, 0, len(events))
	for _, e := range events {
		if strings.TrimSpace(e.Date) != "" {
			dated = append(dated, e)
		}
	}
	slices.SortStableFunc(dated, func(a, b event.Event) int { return strings.Compare(a.Date, b.Date) })
	if len(dated) > limit {
		dated = dated[:limit]
	}
	return dated
}
