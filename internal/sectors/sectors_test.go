package sectors

import (
	"math"
	"testing"
	"time"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// circleRails builds flat inner/outer rails of a circular track.
func circleRails(radius, width float64, n int) (track.Curve, track.Curve) {
	inner := make(track.Curve, n)
	outer := make(track.Curve, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		c, s := math.Cos(theta), math.Sin(theta)
		inner[i] = geom.Vec3{X: (radius - width/2) * c, Y: (radius - width/2) * s}
		outer[i] = geom.Vec3{X: (radius + width/2) * c, Y: (radius + width/2) * s}
	}
	return inner, outer
}

// circleQualifyingLap lays samples around the circle with the sector
// splits at a third and two thirds of the lap.
func circleQualifyingLap(driver telemetry.Driver, radius, mps, startOffset float64, samples int) *telemetry.Lap {
	series := make(telemetry.Series, samples)
	lapTime := 2 * math.Pi * radius / mps
	for i := range series {
		frac := float64(i) / float64(samples-1)
		theta := 2 * math.Pi * frac
		series[i] = telemetry.Sample{
			Time:     time.Duration(frac * lapTime * float64(time.Second)),
			X:        (radius + startOffset) * math.Cos(theta),
			Y:        (radius + startOffset) * math.Sin(theta),
			SpeedKmh: mps * 3.6,
		}
	}
	third := time.Duration(lapTime / 3 * float64(time.Second))
	return &telemetry.Lap{
		Driver:  driver,
		Samples: series,
		Sectors: telemetry.SectorTimes{Sector1: third, Sector2: third, Sector3: third},
	}
}

func TestLocateCircle(t *testing.T) {
	const (
		radius = 500.0
		n      = 3000
	)
	inner, outer := circleRails(radius, 12, n)

	// Two drivers with equal laps, one nudged slightly off the centerline
	// so the centroid actually averages something.
	laps := []*telemetry.Lap{
		circleQualifyingLap(telemetry.Driver{Abbrev: "VER", Year: 2024, Session: "Q"}, radius, 50, 1.0, 60),
		circleQualifyingLap(telemetry.Driver{Abbrev: "LEC", Year: 2024, Session: "Q"}, radius, 50, -1.0, 60),
	}

	info, err := Locate(laps, inner, outer)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	// Laps start and end at theta=0, so the start/finish centroid sits on
	// the +X axis at the centerline radius.
	if math.Abs(info.StartFinish.X-radius) > 0.01 || math.Abs(info.StartFinish.Y) > 0.01 {
		t.Errorf("start/finish centroid at (%.3f, %.3f), want (~%.0f, 0)",
			info.StartFinish.X, info.StartFinish.Y, radius)
	}
	if info.StartFinishIndex != 0 {
		t.Errorf("start/finish index %d, want 0", info.StartFinishIndex)
	}

	// Equal sector thirds put the boundaries a third and two thirds of
	// the way around, and sector 3 back at the line.
	wantIdx := [3]int{n / 3, 2 * n / 3, 0}
	for s := 0; s < 3; s++ {
		got := info.Indices[s]
		diff := (got - wantIdx[s] + n) % n
		if diff > n/100 && diff < n-n/100 {
			t.Errorf("sector %d index %d, want ~%d", s+1, got, wantIdx[s])
		}
	}

	wantTheta := [3]float64{2 * math.Pi / 3, 4 * math.Pi / 3, 0}
	for s := 0; s < 3; s++ {
		gotTheta := math.Atan2(info.Locations[s].Y, info.Locations[s].X)
		if gotTheta < 0 {
			gotTheta += 2 * math.Pi
		}
		d := math.Abs(gotTheta - wantTheta[s])
		if d > math.Pi {
			d = 2*math.Pi - d
		}
		if d > 0.1 {
			t.Errorf("sector %d location at theta %.3f, want ~%.3f", s+1, gotTheta, wantTheta[s])
		}
	}
}

func TestLocateRejectsBadInput(t *testing.T) {
	inner, outer := circleRails(500, 12, 100)

	if _, err := Locate(nil, inner, outer); err == nil {
		t.Error("empty lap set accepted")
	}
	if _, err := Locate([]*telemetry.Lap{circleQualifyingLap(telemetry.Driver{Abbrev: "VER"}, 500, 50, 0, 30)}, inner, outer[:50]); err == nil {
		t.Error("mismatched rails accepted")
	}

	noSectors := circleQualifyingLap(telemetry.Driver{Abbrev: "VER"}, 500, 50, 0, 30)
	noSectors.Sectors = telemetry.SectorTimes{}
	if _, err := Locate([]*telemetry.Lap{noSectors}, inner, outer); err == nil {
		t.Error("lap without sector times accepted")
	}
}

func TestEndFrames(t *testing.T) {
	st := telemetry.SectorTimes{
		Sector1: 25 * time.Second,
		Sector2: 30 * time.Second,
		Sector3: 28 * time.Second,
	}
	got := EndFrames(st, 30, 60)
	want := [3]int{60 + 25*30, 60 + 55*30, 60 + 83*30}
	if got != want {
		t.Errorf("EndFrames = %v, want %v", got, want)
	}
}
