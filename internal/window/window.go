// Package window decides whether a capture is permitted at a given instant.
// Evaluation is pure: the clock and the solar lookup are passed in.
package window

import (
	"fmt"
	"time"
)

// SunTimes resolves sunrise and sunset for the day containing date, in the
// same location the window is evaluated for. ok is false when the times
// could not be computed; the caller then skips solar gating.
type SunTimes func(date time.Time) (sunrise, sunset time.Time, ok bool)

// Window is the configured activity window. Start and End are "HH:MM" and
// may wrap past midnight. An empty Days set means every day is eligible.
type Window struct {
	Start    string
	End      string
	Days     []string
	UseSolar bool
}

// IsActive reports whether now falls inside the window.
//
// The weekday check runs first and independently: when Days is non-empty
// and today is not a member, the window is closed regardless of the time of
// day. Malformed Start/End degrade to always-active so a bad edit cannot
// silently stop captures. Solar gating further restricts the result to
// sunrise..sunset and is skipped when the lookup fails.
func (w Window) IsActive(now time.Time, sun SunTimes) bool {
	if len(w.Days) > 0 && !containsDay(w.Days, now.Weekday()) {
		return false
	}

	active := true
	start, errStart := ParseTimeOfDay(w.Start)
	end, errEnd := ParseTimeOfDay(w.End)
	if errStart == nil && errEnd == nil {
		active = withinRange(start, end, secondOfDay(now))
	}

	if w.UseSolar && sun != nil {
		if sunrise, sunset, ok := sun(now); ok {
			active = active && withinRange(secondOfDay(sunrise), secondOfDay(sunset), secondOfDay(now))
		}
	}

	return active
}

// ParseTimeOfDay parses "HH:MM" into a second-of-day offset.
func ParseTimeOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*3600 + m*60, nil
}

// withinRange is inclusive on both ends. start > end means the range wraps
// past midnight (e.g. 22:00-06:00). start == end is a single-instant window.
func withinRange(start, end, now int) bool {
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func containsDay(days []string, wd time.Weekday) bool {
	label := wd.String()[:3] // "Mon".."Sun"
	for _, d := range days {
		if d == label {
			return true
		}
	}
	return false
}
