package catalog

import (
	"slices"
	"strings"
	"time"

	"freestylecal/internal/domain/event"
)

// Filter narrows a listing. Zero-valued fields match everything.
type Filter struct {
	// Country matches exactly, ignoring case.
	Country string
	// Organizer matches as a case-insensitive substring.
	Organizer string
	// DateFrom and DateTo bound the date inclusively. Dates compare as
	// strings, so non-canonical dates sort wherever their text falls.
	DateFrom string
	DateTo   string
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Country) == "" &&
		strings.TrimSpace(f.Organizer) == "" &&
		strings.TrimSpace(f.DateFrom) == "" &&
		strings.TrimSpace(f.DateTo) == ""
}

func (f Filter) Match(e event.Event) bool {
	if country := strings.TrimSpace(f.Country); country != "" && !strings.EqualFold(e.Country, country) {
		return false
	}
	if organizer := strings.TrimSpace(f.Organizer); organizer != "" &&
		!strings.Contains(strings.ToLower(e.Organizer), strings.ToLower(organizer)) {
		return false
	}
	if from := strings.TrimSpace(f.DateFrom); from != "" && e.Date < from {
		return false
	}
	if to := strings.TrimSpace(f.DateTo); to != "" && e.Date > to {
		return false
	}
	return true
}

// Apply keeps the events matching f, preserving order.
func Apply(events []event.Event, f Filter) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

type Stats struct {
	Total       int           `json:"total"`
	ByOrganizer []event.Count `json:"by_organizer"`
	ByCountry   []event.Count `json:"by_country"`
	Upcoming    int           `json:"upcoming"`
}

// ComputeStats counts events per organizer and country. Events dated on
// or after today count as upcoming.
func ComputeStats(events []event.Event, today time.Time) Stats {
	cutoff := today.Format(event.CanonicalDateLayout)
	stats := Stats{
		Total:       len(events),
		ByOrganizer: event.CountBy(events, event.ByOrganizer),
		ByCountry:   event.CountBy(events, event.ByCountry),
	}
	for _, e := range events {
		if e.Date >= cutoff {
			stats.Upcoming++
		}
	}
	return stats
}

// UpcomingFrom returns events dated on or after today, earliest first.
func UpcomingFrom(events []event.Event, today time.Time) []event.Event {
	upcoming := Apply(events, Filter{DateFrom: today.Format(event.CanonicalDateLayout)})
	slices.SortStableFunc(upcoming, func(a, b event.Event) int { return strings.Compare(a.Date, b.Date) })
	return upcoming
}

type Facets struct {
	Countries  []string `json:"countries"`
	Organizers []string `json:"organizers"`
}

// FacetsOf lists the distinct non-empty countries and organizers, sorted.
func FacetsOf(events []event.Event) Facets {
	return Facets{
		Countries:  distinct(events, event.ByCountry),
		Organizers: distinct(events, event.ByOrganizer),
	}
}

func distinct(events []event.Event, keyOf func(event.Event) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range events {
		key := strings.TrimSpace(keyOf(e))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}
