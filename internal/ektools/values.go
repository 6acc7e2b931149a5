// Package ektools contains helpers to turn raw Electric Kiwi API values
// into display-ready ones.
package ektools

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
)

// ParseMoney converts an amount as reported by the API (e.g. "-102.22") into
// a number. The API's precision is passed through; no rounding is applied.
func ParseMoney(value string) (float64, error) {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// ParsePercentage converts a percentage as reported by the API (e.g. "3.5")
// into a number. The unit is left to the display layer.
func ParsePercentage(value string) (float64, error) {
	percentage, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", value, err)
	}
	return percentage, nil
}

// ParseDate parses a calendar date as reported by the API (e.g. the next
// billing date "2024-03-05"). Any other format is a parse error.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return date, nil
}

const clockLayout = "3:04 PM"

// HopWindow converts the selected hour of power into concrete start and end
// timestamps, on now's calendar day in now's location. The window's end time
// is the pivot for both values: once the end time has passed, both
// timestamps move a day forward, so an overnight window keeps its start and
// end consistent.
func HopWindow(hop ekapi.Hop, now time.Time) (start, end time.Time, err error) {
	if start, err = atClockTime(hop.Start.StartTime, now); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = atClockTime(hop.End.EndTime, now); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(now) {
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func atClockTime(value string, now time.Time) (time.Time, error) {
	clock, err := time.Parse(clockLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location()), nil
}
