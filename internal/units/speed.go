// Package units provides the unit conversions used across the telemetry
// pipeline. Timing feeds report speed in km/h and lap times as durations;
// all geometry works in meters and seconds.
package units

import (
	"fmt"
	"time"
)

const (
	// MetersPerSecondPerKmh converts km/h to m/s.
	MetersPerSecondPerKmh = 1.0 / 3.6
	// KmhPerMetersPerSecond converts m/s to km/h.
	KmhPerMetersPerSecond = 3.6
)

// KmhToMps converts a speed from km/h to m/s.
func KmhToMps(kmh float64) float64 { return kmh * MetersPerSecondPerKmh }

// MpsToKmh converts a speed from m/s to km/h.
func MpsToKmh(mps float64) float64 { return mps * KmhPerMetersPerSecond }

// FormatLapTime renders a lap duration as m:ss.mmm, the display format
// used on timing screens (e.g. "1:23.342").
func FormatLapTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	rem := d - time.Duration(mins)*time.Minute
	secs := rem.Seconds()
	return fmt.Sprintf("%d:%06.3f", mins, secs)
}
