// Package solar wraps the astronomical sunrise/sunset calculation used for
// solar gating of the capture window.
package solar

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("solar")

// Provider computes sun times for a fixed location. The zero value is not
// usable; construct with the configured coordinates and IANA timezone.
type Provider struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// SunTimes returns sunrise and sunset for the calendar day containing date
// in the provider's timezone. ok is false on any failure (unknown timezone,
// polar day or night) so callers can fall back to non-solar behavior.
func (p Provider) SunTimes(date time.Time) (rise, set time.Time, ok bool) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		log.Warningf("solar calculation skipped: unknown timezone %q: %v", p.Timezone, err)
		return time.Time{}, time.Time{}, false
	}

	local := date.In(loc)
	rise, set = sunrise.SunriseSunset(p.Latitude, p.Longitude, local.Year(), local.Month(), local.Day())
	if rise.IsZero() || set.IsZero() {
		log.Warningf("no sunrise/sunset for lat=%.3f lon=%.3f on %s", p.Latitude, p.Longitude, local.Format("2006-01-02"))
		return time.Time{}, time.Time{}, false
	}

	return rise.In(loc), set.In(loc), true
}
