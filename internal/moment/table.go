package moment

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sunrise-sunset.yaml
var defaultTable []byte

var (
	// ErrDuplicateLocation is returned when a table lists a location twice.
	ErrDuplicateLocation = errors.New("duplicate location in sunrise/sunset table")
	// ErrInvalidEntry is returned for entries with a malformed date or time.
	ErrInvalidEntry = errors.New("invalid sunrise/sunset entry")
)

const (
	dateLayout = "2006-01-02"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// Day holds the sunrise and sunset of one calendar date in local civil time.
type Day struct {
	DataTime string `yaml:"dataTime" json:"dataTime"`
	Sunrise  string `yaml:"sunrise" json:"sunrise"`
	Sunset   string `yaml:"sunset" json:"sunset"`
}

// Location is one row of the table. Coordinates are optional; when present
// they allow sun times to be computed for dates the table does not list.
type Location struct {
	LocationName string   `yaml:"locationName" json:"locationName"`
	Latitude     *float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude    *float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Time         []Day    `yaml:"time" json:"time"`
}

func (l Location) hasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

type indexedLocation struct {
	Location
	days map[string]Day
}

// Table is a read-only sunrise/sunset reference table keyed by location name.
type Table struct {
	order     []string
	locations map[string]indexedLocation
}

// NewTable indexes the given locations. Names must be unique and every day
// must carry a valid date, sunrise and sunset.
func NewTable(locs ...Location) (*Table, error) {
	t := &Table{
		locations: make(map[string]indexedLocation, len(locs)),
	}

	for _, loc := range locs {
		if _, exists := t.locations[loc.LocationName]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLocation, loc.LocationName)
		}

		days := make(map[string]Day, len(loc.Time))
		for _, d := range loc.Time {
			if err := d.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", loc.LocationName, err)
			}
			days[d.DataTime] = d
		}

		t.order = append(t.order, loc.LocationName)
		t.locations[loc.LocationName] = indexedLocation{Location: loc, days: days}
	}

	return t, nil
}

// Load decodes a table from YAML. JSON in the same layout is accepted too.
func Load(r io.Reader) (*Table, error) {
	var locs []Location
	if err := yaml.NewDecoder(r).Decode(&locs); err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable()
		}
		return nil, fmt.Errorf("decode sunrise/sunset table: %w", err)
	}
	return NewTable(locs...)
}

// LoadFile reads a table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	return Load(bytes.NewReader(defaultTable))
}

// Lookup returns the location with exactly the given name.
func (t *Table) Lookup(name string) (Location, bool) {
	l, ok := t.locations[name]
	return l.Location, ok
}

// Day returns the entry for date (YYYY-MM-DD) at the named location.
func (t *Table) Day(name, date string) (Day, bool) {
	l, ok := t.locations[name]
	if !ok {
		return Day{}, false
	}
	d, ok := l.days[date]
	return d, ok
}

// Names lists the locations in table order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Encode writes the table as YAML.
func (t *Table) Encode(w io.Writer) error {
	locs := make([]Location, 0, len(t.order))
	for _, name := range t.order {
		locs = append(locs, t.locations[name].Location)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(locs); err != nil {
		return err
	}
	return enc.Close()
}

func (d Day) validate() error {
	if _, err := time.Parse(dateLayout, d.DataTime); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidEntry, d.DataTime)
	}
	if _, err := parseClock(d.DataTime, d.Sunrise, time.UTC); err != nil {
		return fmt.Errorf("%w: sunrise %q on %s", ErrInvalidEntry, d.Sunrise, d.DataTime)
	}
	if _, err := parseClock(d.DataTime, d.Sunset, time.UTC); err != nil {
		return fmt.Errorf("%w: sunset %q on %s", ErrInvalidEntry, d.Sunset, d.DataTime)
	}
	return nil
}

// parseClock interprets date + " " + clock in loc.
func parseClock(date, clock string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range clockLayouts {
		ts, err := time.ParseInLocation(dateLayout+" "+layout, date+" "+clock, loc)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
