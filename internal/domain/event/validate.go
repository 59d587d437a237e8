package event

import (
	"errors"
	"strings"
)

var ErrInvalidEvent = errors.New("event requires name, date and organizer")

// Validate reports whether e carries the attributes needed to store it.
func Validate(e *Event) bool {
	if e == nil {
		return false
	}
	return strings.TrimSpace(e.Name) != "" &&
		strings.TrimSpace(e.Date) != "" &&
		strings.TrimSpace(e.Organizer) != ""
}

// Check is Validate in error form.
func Check(e *Event) error {
	if !Validate(e) {
		return ErrInvalidEvent
	}
	return nil
}
