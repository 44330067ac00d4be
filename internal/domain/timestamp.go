package domain

import (
	"fmt"
	"strings"
	"time"
)

// timeLayouts lists the accepted raw timestamp shapes, tried in order.
// Slash dates are day-first: "05/03/2024" is the 5th of March.
var timeLayouts = []string{
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 03PM",
	"02/01/2006 03:04PM",
	"02/01/2006 15:04",
	"02/01/2006",
	time.RFC3339,
}

// ParseTimestamp parses a raw timestamp accepting the layouts in
// timeLayouts. The result is normalized to UTC with its zone designator
// stripped, so cleaned tables carry comparable naive instants.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// DateOnly truncates an instant to its UTC calendar date, the merge key
// component shared by traffic and weather.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
