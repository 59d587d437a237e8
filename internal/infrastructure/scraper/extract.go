package scraper

import (
	"bytes"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
)

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// extractPage returns every event candidate on a listing page in container
// selector order. Candidates still need validation.
func (p Profile) extractPage(body []byte, page Page) (events []event.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = errs.Recovered(r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(err, "parse html")
	}

	linkBase := p.linkBase(page)
	for _, selector := range p.Containers {
		doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if p.MaxPerSelector > 0 && i >= p.MaxPerSelector {
				return false
			}
			if candidate, ok := p.extractElement(sel, page, linkBase); ok {
				events = append(events, candidate)
			}
			return true
		})
	}
	return events, nil
}

func (p Profile) extractElement(sel *goquery.Selection, page Page, linkBase *url.URL) (event.Event, bool) {
	title := firstText(sel, p.TitleSelectors, p.MinTitleLength)
	if title == "" || !p.acceptsTitle(title) {
		return event.Event{}, false
	}

	date, clock := extractDate(sel, p.DateSelectors)
	location := firstText(sel, p.LocationSelectors, 0)
	place := p.infer(title, location, page)

	link := resolveLink(linkBase, sel.Find("a[href]").First().AttrOr("href", ""))
	if link == "" && p.LinkFallback && linkBase != nil {
		link = linkBase.String()
	}

	description := firstText(sel, p.DescriptionSelectors, p.MinDescriptionLength)
	if description == "" {
		description = expand(p.DescriptionTemplate, map[string]string{
			"title":  title,
			"league": place.League,
			"page":   page.Label,
		})
	}

	return event.Event{
		Name:         p.NamePrefix + title,
		Date:         date,
		Time:         clock,
		City:         place.City,
		Country:      place.Country,
		Venue:        place.Venue,
		Organizer:    p.Organizer,
		OfficialLink: link,
		Description:  description,
	}.Normalize(), true
}

// firstText returns the text of the first selector whose match is longer
// than minLen runes.
func firstText(sel *goquery.Selection, selectors []string, minLen int) string {
	for _, selector := range selectors {
		found := sel.Find(selector).First()
		if found.Length() == 0 {
			continue
		}
		text := compactText(found.Text())
		if text != "" && utf8.RuneCountInString(text) > minLen {
			return text
		}
	}
	return ""
}

// extractDate prefers machine-readable attributes over display text. A full
// RFC 3339 timestamp also yields the start time.
func extractDate(sel *goquery.Selection, selectors []string) (date string, clock string) {
	for _, selector := range selectors {
		found := sel.Find(selector).First()
		if found.Length() == 0 {
			continue
		}

		raw := strings.TrimSpace(found.AttrOr("datetime", ""))
		if raw == "" {
			raw = strings.TrimSpace(found.AttrOr("data-date", ""))
		}
		if raw == "" {
			raw = compactText(found.Text())
		}
		if raw == "" {
			continue
		}

		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.Format(event.CanonicalDateLayout), ts.Format("15:04")
			}
		}
		return event.ParseDate(raw), ""
	}
	return "", ""
}

func (p Profile) linkBase(page Page) *url.URL {
	raw := p.BaseURL
	if raw == "" {
		raw = page.URL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" {
		return nil
	}
	if p.BaseURL == "" {
		return &url.URL{Scheme: base.Scheme, Host: base.Host}
	}
	return base
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func compactText(s string) string {
	return strings.Join(strings.Fields(event.CleanText(s)), " ")
}
