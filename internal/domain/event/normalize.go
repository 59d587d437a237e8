package event

import (
	"strings"
	"time"
)

// CanonicalDateLayout is the ISO calendar date every parsed date is rendered in.
const CanonicalDateLayout = "2006-01-02"

var controlReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// Month names are matched after lowercasing; none is a substring of another.
var spanishMonthReplacer = strings.NewReplacer(
	"enero", "january",
	"febrero", "february",
	"marzo", "march",
	"abril", "april",
	"mayo", "may",
	"junio", "june",
	"julio", "july",
	"agosto", "august",
	"septiembre", "september",
	"octubre", "october",
	"noviembre", "november",
	"diciembre", "december",
)

// Tried in order; the first match wins.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"2 de January de 2006",
	"2 January 2006",
}

// CleanText trims surrounding whitespace and turns each newline, carriage
// return and tab into a single space. It is idempotent.
func CleanText(s string) string {
	return controlReplacer.Replace(strings.TrimSpace(s))
}

// ParseDate converts a date written in one of the known day-first or ISO
// formats, with Spanish or English month names, to YYYY-MM-DD. Input it
// cannot parse is returned unchanged.
func ParseDate(raw string) string {
	if raw == "" {
		return ""
	}

	candidate := spanishMonthReplacer.Replace(strings.ToLower(raw))
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, candidate)
		if err == nil {
			return parsed.Format(CanonicalDateLayout)
		}
	}

	return raw
}

// IsCanonicalDate reports whether s is already a valid YYYY-MM-DD date.
func IsCanonicalDate(s string) bool {
	if len(s) != len(CanonicalDateLayout) {
		return false
	}
	_, err := time.Parse(CanonicalDateLayout, s)
	return err == nil
}
