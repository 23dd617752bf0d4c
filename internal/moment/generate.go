package moment

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Generate computes a table row for days consecutive dates starting at the
// calendar date of from in loc. Dates without a sunrise or sunset (polar day
// or night) are skipped.
func Generate(name string, lat, lon float64, from time.Time, days int, loc *time.Location) Location {
	if loc == nil {
		loc = time.Local
	}

	out := Location{
		LocationName: name,
		Latitude:     &lat,
		Longitude:    &lon,
	}

	start := from.In(loc)
	date := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, loc)

	for i := 0; i < days; i++ {
		d := date.AddDate(0, 0, i)
		rise, set := sunrise.SunriseSunset(lat, lon, d.Year(), d.Month(), d.Day())
		if rise.IsZero() || set.IsZero() {
			continue
		}

		out.Time = append(out.Time, Day{
			DataTime: d.Format(dateLayout),
			Sunrise:  rise.In(loc).Format("15:04"),
			Sunset:   set.In(loc).Format("15:04"),
		})
	}

	return out
}
