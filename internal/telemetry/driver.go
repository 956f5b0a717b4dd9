package telemetry

import "fmt"

// Driver identifies one entrant in a comparison run. Identity is the
// opaque Key (abbreviation, year, session); display attributes such as
// team and color never participate in equality or map keys.
type Driver struct {
	Abbrev   string
	LastName string
	Year     int
	Session  string

	Team  string
	Color string
}

// Key returns the opaque identifier used as a map key for this driver.
func (d Driver) Key() string {
	return fmt.Sprintf("%s-%d-%s", d.Abbrev, d.Year, d.Session)
}

func (d Driver) String() string {
	return fmt.Sprintf("%s (%s, %d %s)", d.LastName, d.Abbrev, d.Year, d.Session)
}

// Lap bundles a driver's fastest-lap telemetry with its sector times.
type Lap struct {
	Driver  Driver
	Samples Series
	Sectors SectorTimes
}
