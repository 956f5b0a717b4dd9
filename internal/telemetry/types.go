// Package telemetry defines the typed telemetry model for a qualifying
// lap: per-sample records, ordered series, driver identity and sector
// times, plus the Source abstraction over the external timing-data feed.
package telemetry

import (
	"fmt"
	"time"

	"github.com/formula-viz/formula-viz/internal/geom"
)

// Sample is one raw telemetry record. Positions are in meters, speed in
// km/h as delivered by the timing feed, throttle a fraction in [0,1].
// Brake and DRS are effectively boolean but kept as float64/bool per the
// feed. Samples are irregularly spaced in time.
type Sample struct {
	Time     time.Duration // elapsed since lap start
	X, Y, Z  float64
	SpeedKmh float64
	Throttle float64
	Brake    float64
	RPM      float64
	Gear     int
	DRS      bool
}

// Pos returns the sample position as a vector.
func (s Sample) Pos() geom.Vec3 { return geom.Vec3{X: s.X, Y: s.Y, Z: s.Z} }

// Series is an ordered telemetry sample sequence for one lap.
type Series []Sample

// Validate checks that the series is non-empty and time-ordered.
func (s Series) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("telemetry: series has %d samples, need at least 2", len(s))
	}
	for i := 1; i < len(s); i++ {
		if s[i].Time < s[i-1].Time {
			return fmt.Errorf("telemetry: sample %d goes back in time (%v after %v)",
				i, s[i].Time, s[i-1].Time)
		}
	}
	return nil
}

// Duration returns the elapsed time of the final sample, i.e. the lap time.
func (s Series) Duration() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Time
}

// First returns the first sample. The series must be non-empty.
func (s Series) First() Sample { return s[0] }

// Last returns the last sample. The series must be non-empty.
func (s Series) Last() Sample { return s[len(s)-1] }

// PinEndpoints overwrites the first and last sample positions with p,
// forcing the lap to begin and end on the canonical start/finish point.
// Z is zeroed at the pinned samples; the track projection restores it.
func (s Series) PinEndpoints(p geom.Vec2) {
	if len(s) == 0 {
		return
	}
	s[0].X, s[0].Y, s[0].Z = p.X, p.Y, 0
	last := len(s) - 1
	s[last].X, s[last].Y, s[last].Z = p.X, p.Y, 0
}

// SectorTimes holds the three official sector durations for a lap.
type SectorTimes struct {
	Sector1 time.Duration
	Sector2 time.Duration
	Sector3 time.Duration
}

// Total returns the summed sector time.
func (st SectorTimes) Total() time.Duration {
	return st.Sector1 + st.Sector2 + st.Sector3
}

// CumulativeEnds returns the elapsed time at the end of each sector.
func (st SectorTimes) CumulativeEnds() [3]time.Duration {
	return [3]time.Duration{
		st.Sector1,
		st.Sector1 + st.Sector2,
		st.Sector1 + st.Sector2 + st.Sector3,
	}
}
