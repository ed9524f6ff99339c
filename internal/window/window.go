// Package window implements the chart range modes. Two families exist and
// are not interchangeable: calendar-aligned modes (day, week) are bounded by
// midnight in the reference date's location, rolling modes (24h, 7d) trail
// the current instant.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/luki/co2dash/internal/sensor"
)

// Mode selects which readings a view shows.
type Mode int

const (
	All Mode = iota
	Day
	Week
	Last24h
	Last7d
)

var modeNames = map[Mode]string{
	All:     "all",
	Day:     "day",
	Week:    "week",
	Last24h: "24h",
	Last7d:  "7d",
}

// Modes lists every mode in cycling order.
var Modes = []Mode{Day, Week, Last24h, Last7d, All}

// String returns the mode's query/display name.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name. An empty string means All.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return All, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return All, fmt.Errorf("unknown range mode %q", s)
}

// Next returns the following mode in Modes, wrapping around.
func (m Mode) Next() Mode {
	for i, mm := range Modes {
		if mm == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

// Rolling reports whether the mode trails the current instant.
func (m Mode) Rolling() bool {
	return m == Last24h || m == Last7d
}

// Bounds returns the half-open interval [from, to) the mode keeps. ok is
// false for All, which is unbounded.
//
// Day is the calendar date of ref. Week is the seven calendar dates ending
// with ref's date. Rolling modes end at now (inclusive, so to is now plus
// one nanosecond).
func Bounds(m Mode, ref, now time.Time) (from, to time.Time, ok bool) {
	switch m {
	case Day:
		start := midnight(ref)
		return start, start.AddDate(0, 0, 1), true
	case Week:
		end := midnight(ref).AddDate(0, 0, 1)
		return end.AddDate(0, 0, -7), end, true
	case Last24h:
		return now.Add(-24 * time.Hour), now.Add(time.Nanosecond), true
	case Last7d:
		return now.Add(-7 * 24 * time.Hour), now.Add(time.Nanosecond), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Filter keeps the readings that fall inside the mode's bounds, preserving
// input order. Calendar comparisons happen in ref's location.
func Filter(readings []sensor.Reading, m Mode, ref, now time.Time) []sensor.Reading {
	from, to, ok := Bounds(m, ref, now)
	if !ok {
		out := make([]sensor.Reading, len(readings))
		copy(out, readings)
		return out
	}
	loc := ref.Location()
	if m.Rolling() {
		loc = now.Location()
	}
	var out []sensor.Reading
	for _, r := range readings {
		t := r.Timestamp.In(loc)
		if !t.Before(from) && t.Before(to) {
			out = append(out, r)
		}
	}
	return out
}

// Label describes the current view for titles, e.g. "day 2026-02-21" or
// "last 24h".
func Label(m Mode, ref time.Time) string {
	switch m {
	case Day:
		return "day " + ref.Format("2006-01-02")
	case Week:
		from := midnight(ref).AddDate(0, 0, -6)
		return "week " + from.Format("2006-01-02") + " - " + ref.Format("2006-01-02")
	case Last24h:
		return "last 24h"
	case Last7d:
		return "last 7d"
	default:
		return "all readings"
	}
}

func midnight(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
