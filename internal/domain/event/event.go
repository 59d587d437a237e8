package event

import "strings"

// Event is one freestyle battle occurrence as reported by a source.
// Name, Date and Organizer form its natural key.
type Event struct {
	ID              uint64
	Name            string
	Date            string
	Time            string
	City            string
	Country         string
	Venue           string
	Organizer       string
	OfficialLink    string
	Description     string
	ScrapeTimestamp string
}

// Key identifies an event across runs.
type Key struct {
	Name      string
	Date      string
	Organizer string
}

func (e Event) Key() Key {
	return Key{Name: e.Name, Date: e.Date, Organizer: e.Organizer}
}

func (k Key) String() string {
	return strings.Join([]string{k.Name, k.Date, k.Organizer}, "|")
}

// Normalize returns a copy with every text attribute cleaned and the date
// canonicalized when it matches a known format.
func (e Event) Normalize() Event {
	e.Name = CleanText(e.Name)
	e.Date = ParseDate(CleanText(e.Date))
	e.Time = CleanText(e.Time)
	e.City = CleanText(e.City)
	e.Country = CleanText(e.Country)
	e.Venue = CleanText(e.Venue)
	e.Organizer = CleanText(e.Organizer)
	e.OfficialLink = CleanText(e.OfficialLink)
	e.Description = CleanText(e.Description)
	return e
}
