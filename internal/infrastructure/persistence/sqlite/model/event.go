package model

type Event struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string `gorm:"column:name;type:text;not null;uniqueIndex:idx_events_natural_key,priority:1"`
	Date            string `gorm:"column:date;type:text;not null;uniqueIndex:idx_events_natural_key,priority:2;index:idx_events_date"`
	Time            string `gorm:"column:time;type:text;not null"`
	City            string `gorm:"column:city;type:text;not null"`
	Country         string `gorm:"column:country;type:text;not null;index:idx_events_country"`
	Venue           string `gorm:"column:venue;type:text;not null"`
	Organizer       string `gorm:"column:organizer;type:text;not null;uniqueIndex:idx_events_natural_key,priority:3"`
	OfficialLink    string `gorm:"column:official_link;type:text;not null"`
	Description     string `gorm:"column:description;type:text;not null"`
	DateCanonical   bool   `gorm:"column:date_canonical;not null"`
	ScrapeTimestamp string `gorm:"column:scrape_timestamp;type:text;not null"`
}

func (Event) TableName() string {
	return "events"
}
