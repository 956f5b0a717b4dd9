package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/formula-viz/formula-viz/internal/config"
	"github.com/formula-viz/formula-viz/internal/telemetry"
)

type fakeSource map[string]*telemetry.Lap

func (fs fakeSource) FastestLap(d telemetry.Driver, track string) (*telemetry.Lap, error) {
	lap, ok := fs[d.Key()]
	if !ok {
		return nil, fmt.Errorf("%w for %s", telemetry.ErrNoFastestLap, d)
	}
	return lap, nil
}

// writeCircleBoundary writes a boundary CSV for a circular track with the
// left rail at radius 500 and the right at 488.
func writeCircleBoundary(t *testing.T, dir string, year int) {
	t.Helper()
	var b []byte
	b = append(b, []byte("lefts_X,lefts_Y,rights_X,rights_Y\n")...)
	const n = 300
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		c, s := math.Cos(theta), math.Sin(theta)
		b = append(b, []byte(fmt.Sprintf("%.4f,%.4f,%.4f,%.4f\n",
			500*c, 500*s, 488*c, 488*s))...)
	}
	name := filepath.Join(dir, fmt.Sprintf("testring_%d.csv", year))
	if err := os.WriteFile(name, b, 0o644); err != nil {
		t.Fatalf("write boundary: %v", err)
	}
}

func circleLap(driver telemetry.Driver, radius, mps float64, samples int) *telemetry.Lap {
	series := make(telemetry.Series, samples)
	lapTime := 2 * math.Pi * radius / mps
	for i := range series {
		frac := float64(i) / float64(samples-1)
		theta := 2 * math.Pi * frac
		series[i] = telemetry.Sample{
			Time:     time.Duration(frac * lapTime * float64(time.Second)),
			X:        radius * math.Cos(theta),
			Y:        radius * math.Sin(theta),
			SpeedKmh: mps * 3.6,
			Throttle: 1,
			RPM:      11500,
			Gear:     8,
		}
	}
	third := time.Duration(lapTime / 3 * float64(time.Second))
	return &telemetry.Lap{
		Driver:  driver,
		Samples: series,
		Sectors: telemetry.SectorTimes{Sector1: third, Sector2: third, Sector3: third},
	}
}

func testConfig() *config.RunConfig {
	fps := 30
	buf := 15
	points := 4000
	return &config.RunConfig{
		FPS:                 &fps,
		StartBufferFrames:   &buf,
		EndBufferFrames:     &buf,
		TrackResamplePoints: &points,
	}
}

func TestRunCircleTrack(t *testing.T) {
	dir := t.TempDir()
	writeCircleBoundary(t, dir, 2024)

	ver := telemetry.Driver{Abbrev: "VER", LastName: "Verstappen", Year: 2024, Session: "Q"}
	lec := telemetry.Driver{Abbrev: "LEC", LastName: "Leclerc", Year: 2024, Session: "Q"}
	src := fakeSource{
		ver.Key(): circleLap(ver, 494, 51, 50),
		lec.Key(): circleLap(lec, 494, 50, 50),
	}

	res, err := Run(Params{
		Track:       "testring",
		Year:        2024,
		Drivers:     []telemetry.Driver{ver, lec},
		Source:      src,
		BoundaryDir: dir,
		Config:      testConfig(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RigidityDivisor != 3 {
		t.Errorf("rigidity divisor %d, want default 3 for a clean circle", res.RigidityDivisor)
	}
	if len(res.Paths) != 2 || len(res.SpedPaths) != 2 {
		t.Fatalf("got %d paths, %d sped paths", len(res.Paths), len(res.SpedPaths))
	}

	for _, d := range []telemetry.Driver{ver, lec} {
		p, ok := res.Paths[d.Key()]
		if !ok {
			t.Fatalf("no path for %s", d.Key())
		}
		lapSec := src[d.Key()].Samples.Duration().Seconds()
		want := int(lapSec*30) + 1 + 30
		if len(p.Frames) != want {
			t.Errorf("%s has %d frames, want %d", d.Key(), len(p.Frames), want)
		}
		if p.StartBuffer != 15 || p.EndBuffer != 15 {
			t.Errorf("%s buffers %d/%d, want 15/15", d.Key(), p.StartBuffer, p.EndBuffer)
		}
	}

	// Each driver's sector end frames are derived from their own sector
	// times and offset past the start buffer.
	for _, lap := range res.Laps {
		ends, ok := res.SectorEndFrames[lap.Driver.Key()]
		if !ok {
			t.Fatalf("no sector end frames for %s", lap.Driver.Key())
		}
		cum := lap.Sectors.CumulativeEnds()
		for s := range ends {
			want := 15 + int(cum[s].Seconds()*30)
			if ends[s] != want {
				t.Errorf("%s sector %d ends at frame %d, want %d", lap.Driver.Key(), s+1, ends[s], want)
			}
		}
		if n := len(res.Paths[lap.Driver.Key()].Frames); ends[2] > n {
			t.Errorf("%s sector 3 end frame %d past path length %d", lap.Driver.Key(), ends[2], n)
		}
	}

	// One standings frame per sped video frame, each complete and
	// ascending.
	maxSped := 0
	for _, p := range res.SpedPaths {
		if len(p.Frames) > maxSped {
			maxSped = len(p.Frames)
		}
	}
	if len(res.Rankings) != maxSped {
		t.Fatalf("%d ranking frames for %d sped frames", len(res.Rankings), maxSped)
	}
	for f, frame := range res.Rankings {
		if len(frame) != 2 {
			t.Fatalf("frame %d has %d standings", f, len(frame))
		}
		if frame[0].Dist > frame[1].Dist {
			t.Fatalf("frame %d standings not ascending", f)
		}
	}

	if res.Sectors == nil || res.Geometry == nil || res.Schedule == nil {
		t.Fatal("missing result artifacts")
	}

	// Laps were pinned to the shared start/finish centroid.
	sf := res.Sectors.StartFinish
	for _, lap := range res.Laps {
		first := lap.Samples.First()
		if math.Abs(first.X-sf.X) > 1e-9 || math.Abs(first.Y-sf.Y) > 1e-9 {
			t.Errorf("%s lap not pinned to start/finish", lap.Driver.Key())
		}
	}
}

func TestRunMissingDriverFailsRun(t *testing.T) {
	dir := t.TempDir()
	writeCircleBoundary(t, dir, 2024)

	ver := telemetry.Driver{Abbrev: "VER", Year: 2024, Session: "Q"}
	ham := telemetry.Driver{Abbrev: "HAM", Year: 2024, Session: "Q"}
	src := fakeSource{ver.Key(): circleLap(ver, 494, 50, 50)}

	_, err := Run(Params{
		Track:       "testring",
		Year:        2024,
		Drivers:     []telemetry.Driver{ver, ham},
		Source:      src,
		BoundaryDir: dir,
		Config:      testConfig(),
	})
	if !errors.Is(err, telemetry.ErrNoFastestLap) {
		t.Fatalf("got %v, want ErrNoFastestLap", err)
	}
}

func TestRunRejectsEmptyField(t *testing.T) {
	if _, err := Run(Params{Source: fakeSource{}}); err == nil {
		t.Error("run without drivers accepted")
	}
	if _, err := Run(Params{Drivers: []telemetry.Driver{{Abbrev: "VER"}}}); err == nil {
		t.Error("run without source accepted")
	}
}
