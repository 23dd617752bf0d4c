package moment

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Moment is the coarse day/night classification used to pick a theme.
type Moment string

const (
	MomentUnknown Moment = ""
	MomentDay     Moment = "day"
	MomentNight   Moment = "night"
)

var (
	// ErrUnknownLocation is returned when the table has no entry for a name.
	ErrUnknownLocation = errors.New("location not in sunrise/sunset table")
	// ErrNoSunTimes is returned when neither the table nor the location's
	// coordinates give sun times for the requested date.
	ErrNoSunTimes = errors.New("no sunrise/sunset for date")
)

// Resolver classifies instants against a Table. Dates are taken from the
// civil calendar of loc.
type Resolver struct {
	table *Table
	loc   *time.Location
}

// NewResolver creates a Resolver. A nil loc means time.Local.
func NewResolver(table *Table, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{table: table, loc: loc}
}

// Location returns the time zone dates are resolved in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// SunTimes returns sunrise and sunset for the calendar date of at.
func (r *Resolver) SunTimes(locationName string, at time.Time) (rise, set time.Time, err error) {
	entry, ok := r.table.Lookup(locationName)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownLocation, locationName)
	}

	local := at.In(r.loc)
	date := local.Format(dateLayout)

	if day, ok := r.table.Day(locationName, date); ok {
		// Entries are validated on load.
		rise, _ = parseClock(date, day.Sunrise, r.loc)
		set, _ = parseClock(date, day.Sunset, r.loc)
		return rise, set, nil
	}

	if entry.hasCoordinates() {
		rise, set = sunrise.SunriseSunset(*entry.Latitude, *entry.Longitude, local.Year(), local.Month(), local.Day())
		if !rise.IsZero() && !set.IsZero() {
			return rise.In(r.loc), set.In(r.loc), nil
		}
	}

	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q on %s", ErrNoSunTimes, locationName, date)
}

// Resolve returns MomentDay when now lies between that date's sunrise and
// sunset inclusive, MomentNight otherwise. Lookup failures yield MomentUnknown
// and an error wrapping ErrUnknownLocation or ErrNoSunTimes.
func (r *Resolver) Resolve(locationName string, now time.Time) (Moment, error) {
	rise, set, err := r.SunTimes(locationName, now)
	if err != nil {
		return MomentUnknown, err
	}

	if !now.Before(rise) && !now.After(set) {
		return MomentDay, nil
	}
	return MomentNight, nil
}

// ResolveOrDefault is Resolve with def substituted for unknown moments.
func (r *Resolver) ResolveOrDefault(locationName string, now time.Time, def Moment) Moment {
	m, err := r.Resolve(locationName, now)
	if err != nil {
		return def
	}
	return m
}
