package scraper

import (
	"strings"
)

// placement is where an extracted event happens, inferred from its title,
// location text and the page it was found on.
type placement struct {
	League  string
	Country string
	City    string
	Venue   string
}

func (p Profile) infer(title string, location string, page Page) placement {
	out := placement{League: p.DefaultLeague}
	text := strings.ToLower(strings.TrimSpace(title + " " + location))
	lowerLocation := strings.ToLower(location)

	league, leagueFound := firstRule(p.Leagues, text)
	if leagueFound {
		out.League = league.Name
	}

	switch {
	case page.Country != "":
		out.Country = page.Country
		out.City = p.cityForCountry(page.Country)
	case leagueFound:
		out.Country = league.Country
		out.City = league.City
	default:
		out.Country = p.DefaultCountry
		if rule, ok := firstRule(p.Countries, lowerLocation); ok {
			out.Country = rule.Name
		}
		out.City = p.cityFromLocation(location)
	}

	out.Venue = location
	if out.Venue == "" {
		out.Venue = expand(p.VenueTemplate, map[string]string{
			"league":  out.League,
			"country": out.Country,
		})
	}
	return out
}

func (p Profile) cityForCountry(country string) string {
	for _, rule := range p.Leagues {
		if rule.Country == country && rule.City != "" {
			return rule.City
		}
	}
	return p.DefaultCity
}

// cityFromLocation prefers a known city name and otherwise keeps the text
// before the first comma.
func (p Profile) cityFromLocation(location string) string {
	if strings.TrimSpace(location) == "" {
		return p.DefaultCity
	}
	if rule, ok := firstRule(p.Cities, strings.ToLower(location)); ok {
		return rule.Name
	}
	head, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(head)
}

func firstRule(rules []Rule, lowerText string) (Rule, bool) {
	for _, rule := range rules {
		if rule.matches(lowerText) {
			return rule, true
		}
	}
	return Rule{}, false
}

func (p Profile) acceptsTitle(title string) bool {
	if len(p.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range p.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// expand fills {name} placeholders; unknown placeholders are left as is.
func expand(template string, values map[string]string) string {
	if template == "" {
		return ""
	}
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
