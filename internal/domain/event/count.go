package event

import (
	"slices"
	"strings"
)

const UnknownLabel = "Unknown"

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// CountBy groups events by the key returned from keyOf, most frequent
// first. Blank keys count as UnknownLabel and ties are ordered by key.
func CountBy(events []Event, keyOf func(Event) string) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for _, e := range events {
		key := strings.TrimSpace(keyOf(e))
		if key == "" {
			key = UnknownLabel
		}
		if i, ok := index[key]; ok {
			counts[i].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, Count{Key: key, Count: 1})
	}

	slices.SortFunc(counts, func(a, b Count) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Key, b.Key)
	})
	return counts
}

func ByOrganizer(e Event) string { return e.Organizer }
func ByCountry(e Event) string   { return e.Country }
