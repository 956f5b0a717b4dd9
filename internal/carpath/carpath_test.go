package carpath

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// circleGeometry builds a flat circular track of the given centerline
// radius and rail separation, dense enough that segment matching is not
// the limiting error.
func circleGeometry(radius, width float64, n int) *track.Geometry {
	inner := make(track.Curve, n)
	outer := make(track.Curve, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		c, s := math.Cos(theta), math.Sin(theta)
		inner[i] = geom.Vec3{X: (radius - width/2) * c, Y: (radius - width/2) * s}
		outer[i] = geom.Vec3{X: (radius + width/2) * c, Y: (radius + width/2) * s}
	}
	return &track.Geometry{Inner: inner, Outer: outer}
}

// circleLap synthesizes a constant-speed lap around the centerline.
func circleLap(radius, mps float64, samples int) telemetry.Series {
	series := make(telemetry.Series, samples)
	for i := range series {
		theta := 2 * math.Pi * float64(i) / float64(samples-1)
		arc := theta * radius
		series[i] = telemetry.Sample{
			Time:     time.Duration(arc / mps * float64(time.Second)),
			X:        radius * math.Cos(theta),
			Y:        radius * math.Sin(theta),
			SpeedKmh: mps * 3.6,
			Throttle: 0.9,
			RPM:      11000,
			Gear:     7,
		}
	}
	return series
}

func TestReconstructCircle(t *testing.T) {
	const (
		radius = 500.0
		mps    = 50.0
		fps    = 30
	)
	geo := circleGeometry(radius, 12, 2000)
	lap := circleLap(radius, mps, 50)

	p, err := Reconstruct(lap, geo, fps, 3)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	lapSeconds := lap.Duration().Seconds()
	want := int(lapSeconds*fps) + 1
	if len(p.Frames) != want {
		t.Fatalf("got %d frames, want %d", len(p.Frames), want)
	}

	for i, f := range p.Frames {
		r := f.Pos.XY().Norm()
		if math.Abs(r-radius) > 1.0 {
			t.Fatalf("frame %d strays to radius %.3f", i, r)
		}
		if math.Abs(f.SpeedMps-mps) > 0.5 {
			t.Fatalf("frame %d speed %.3f, want ~%.1f", i, f.SpeedMps, mps)
		}
		if f.Gear != 7 || math.Abs(f.Throttle-0.9) > 0.05 {
			t.Fatalf("frame %d channels gear=%d throttle=%.3f", i, f.Gear, f.Throttle)
		}
	}

	// Endpoints are pinned to the raw samples.
	if d := p.Frames[0].Pos.Dist(lap.First().Pos()); d > 1e-6 {
		t.Errorf("first frame off start sample by %.6f", d)
	}
	if d := p.Frames[len(p.Frames)-1].Pos.Dist(lap.Last().Pos()); d > 0.5 {
		t.Errorf("last frame off final sample by %.3f", d)
	}

	// Constant speed means angular progress is monotone.
	prev := math.Atan2(p.Frames[0].Pos.Y, p.Frames[0].Pos.X)
	unwrapped := prev
	for i := 1; i < len(p.Frames); i++ {
		cur := math.Atan2(p.Frames[i].Pos.Y, p.Frames[i].Pos.X)
		d := cur - prev
		if d < -math.Pi {
			d += 2 * math.Pi
		}
		if d < -1e-9 {
			t.Fatalf("frame %d moves backward", i)
		}
		unwrapped += d
		prev = cur
	}
	if math.Abs(unwrapped-2*math.Pi) > 0.05 {
		t.Errorf("path sweeps %.4f rad, want full circle", unwrapped)
	}
}

func TestReconstructThrottleClamped(t *testing.T) {
	geo := circleGeometry(500, 12, 2000)
	lap := circleLap(500, 50, 50)
	// Step pattern makes the smoothing spline overshoot past 1.
	for i := range lap {
		if i%2 == 0 {
			lap[i].Throttle = 1
		} else {
			lap[i].Throttle = 0
		}
	}
	p, err := Reconstruct(lap, geo, 30, 3)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for i, f := range p.Frames {
		if f.Throttle < 0 || f.Throttle > 1 {
			t.Fatalf("frame %d throttle %.4f outside [0,1]", i, f.Throttle)
		}
	}
}

func TestReconstructRejectsBadInput(t *testing.T) {
	geo := circleGeometry(500, 12, 200)
	if _, err := Reconstruct(telemetry.Series{{}}, geo, 30, 3); err == nil {
		t.Error("single sample accepted")
	}
	flat := telemetry.Series{
		{Time: 0, X: 500},
		{Time: time.Second, X: 500},
	}
	if _, err := Reconstruct(flat, geo, 30, 3); err == nil {
		t.Error("zero-distance lap accepted")
	}
}

func TestProjectTrackZBlendsElevation(t *testing.T) {
	geo := circleGeometry(500, 12, 2000)
	for i := range geo.Outer {
		geo.Outer[i].Z = 2
	}
	lap := circleLap(500, 50, 20)
	zs, err := projectTrackZ(lap, geo.Inner, geo.Outer)
	if err != nil {
		t.Fatalf("projectTrackZ: %v", err)
	}
	for i, z := range zs {
		// Centerline sits halfway between a 0 m and a 2 m rail.
		if math.Abs(z-1) > 0.05 {
			t.Fatalf("sample %d projects to z=%.3f, want ~1", i, z)
		}
	}
}

func TestInTrackLimits(t *testing.T) {
	geo := circleGeometry(500, 12, 2000)
	lap := circleLap(500, 50, 50)
	p, err := Reconstruct(lap, geo, 30, 3)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	ok, err := InTrackLimits(p, geo, 1.0)
	if err != nil {
		t.Fatalf("InTrackLimits: %v", err)
	}
	if !ok {
		t.Error("centerline path flagged off track")
	}

	// Push every frame 20 m outward; that clears the outer rail by 14 m.
	wide := &Path{FPS: p.FPS, Frames: make([]Frame, len(p.Frames))}
	copy(wide.Frames, p.Frames)
	for i := range wide.Frames {
		dir, _ := wide.Frames[i].Pos.XY().Unit()
		wide.Frames[i].Pos.X += 20 * dir.X
		wide.Frames[i].Pos.Y += 20 * dir.Y
	}
	ok, err = InTrackLimits(wide, geo, 1.0)
	if err != nil {
		t.Fatalf("InTrackLimits: %v", err)
	}
	if ok {
		t.Error("excursion of 14 m passed a 1 m tolerance")
	}
}

func TestFitAllCleanLapKeepsStartingDivisor(t *testing.T) {
	geo := circleGeometry(500, 12, 2000)
	laps := []*telemetry.Lap{
		{
			Driver:  telemetry.Driver{Abbrev: "VER", Year: 2024, Session: "Q"},
			Samples: circleLap(500, 50, 50),
		},
		{
			Driver:  telemetry.Driver{Abbrev: "LEC", Year: 2024, Session: "Q"},
			Samples: circleLap(500, 48, 50),
		},
	}
	opts := Options{FPS: 30, RigidityDivisor: 3, MaxRigidityDivisor: 10, TrackLimitMeters: 1.0}
	paths, divisor, err := FitAll(laps, geo, opts)
	if err != nil {
		t.Fatalf("FitAll: %v", err)
	}
	if divisor != 3 {
		t.Errorf("divisor escalated to %d on clean laps", divisor)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths", len(paths))
	}
	if _, ok := paths["VER-2024-Q"]; !ok {
		t.Error("missing path for VER-2024-Q")
	}
	if _, ok := paths["LEC-2024-Q"]; !ok {
		t.Error("missing path for LEC-2024-Q")
	}
}

func TestFitAllNoLaps(t *testing.T) {
	geo := circleGeometry(500, 12, 200)
	if _, _, err := FitAll(nil, geo, Options{FPS: 30, RigidityDivisor: 3, MaxRigidityDivisor: 10, TrackLimitMeters: 1}); err == nil {
		t.Error("empty lap set accepted")
	}
}

// straightPath builds a path moving +X at constant spacing.
func straightPath(frames int, spacing float64) *Path {
	p := &Path{FPS: 30, Frames: make([]Frame, frames)}
	for i := range p.Frames {
		p.Frames[i].Pos = geom.Vec3{X: float64(i) * spacing}
		p.Frames[i].SpeedMps = spacing * float64(p.FPS)
		p.Frames[i].Gear = 4
	}
	return p
}

func TestExtendBuffers(t *testing.T) {
	p := straightPath(100, 2)
	extendBuffers(p, 5, 3)

	if len(p.Frames) != 108 {
		t.Fatalf("got %d frames, want 108", len(p.Frames))
	}
	if p.StartBuffer != 5 || p.EndBuffer != 3 {
		t.Fatalf("buffer counts %d/%d", p.StartBuffer, p.EndBuffer)
	}
	if len(p.RealFrames()) != 100 {
		t.Fatalf("RealFrames() has %d frames", len(p.RealFrames()))
	}
	if p.RealFrames()[0].Pos.X != 0 {
		t.Errorf("real frame 0 moved to x=%.3f", p.RealFrames()[0].Pos.X)
	}

	// Extrapolation continues the 2 m per-frame motion in both directions
	// and holds the edge channel values.
	for i := 0; i < 5; i++ {
		wantX := -2 * float64(5-i)
		if got := p.Frames[i].Pos.X; math.Abs(got-wantX) > 1e-9 {
			t.Errorf("start buffer frame %d at x=%.3f, want %.3f", i, got, wantX)
		}
		if p.Frames[i].Gear != 4 {
			t.Errorf("start buffer frame %d gear %d", i, p.Frames[i].Gear)
		}
	}
	for i := 0; i < 3; i++ {
		wantX := 198 + 2*float64(i+1)
		if got := p.Frames[105+i].Pos.X; math.Abs(got-wantX) > 1e-9 {
			t.Errorf("end buffer frame %d at x=%.3f, want %.3f", i, got, wantX)
		}
	}

	if got := p.FrameTime(0); got >= 0 {
		t.Errorf("buffer frame time %.3f, want negative", got)
	}
	if got := p.FrameTime(5); got != 0 {
		t.Errorf("first real frame time %.3f, want 0", got)
	}
}

func TestApplyRotationsStraightLine(t *testing.T) {
	p := straightPath(60, 2)
	applyRotations(p)

	nose := geom.Vec3{Y: -1}
	for i := 0; i < len(p.Frames)-1; i++ {
		dir := p.Frames[i].Rot.Rotate(nose)
		if math.Abs(dir.X-1) > 1e-6 || math.Abs(dir.Y) > 1e-6 || math.Abs(dir.Z) > 1e-6 {
			t.Fatalf("frame %d nose points %+v, want +X", i, dir)
		}
	}

	// Wheel spin accumulates monotonically while moving forward.
	for i := 1; i < len(p.Frames); i++ {
		if p.Frames[i].WheelRot >= p.Frames[i-1].WheelRot {
			t.Fatalf("wheel rotation not accumulating at frame %d", i)
		}
	}
	perFrame := p.Frames[0].SpeedMps / float64(p.FPS) / wheelRadiusMeters
	if got := math.Abs(p.Frames[1].WheelRot - p.Frames[0].WheelRot); math.Abs(got-perFrame) > 1e-9 {
		t.Errorf("per-frame wheel step %.6f, want %.6f", got, perFrame)
	}
}

func TestFinalizeOrientsBufferFrames(t *testing.T) {
	p := straightPath(60, 2)
	Finalize(p, 10, 10)
	if len(p.Frames) != 80 {
		t.Fatalf("got %d frames, want 80", len(p.Frames))
	}
	nose := geom.Vec3{Y: -1}
	dir := p.Frames[0].Rot.Rotate(nose)
	if math.Abs(dir.X-1) > 1e-6 {
		t.Errorf("buffer frame nose points %+v, want +X", dir)
	}
}

func TestProjectTrackZTinyRails(t *testing.T) {
	// Fewer than 10 rail points, where the warm window would round to
	// zero without its one-segment floor.
	geo := circleGeometry(500, 12, 8)
	for i := range geo.Outer {
		geo.Outer[i].Z = 2
	}
	// Nine samples land exactly on the eight cross segments in turn.
	lap := circleLap(500, 50, 9)
	zs, err := projectTrackZ(lap, geo.Inner, geo.Outer)
	if err != nil {
		t.Fatalf("projectTrackZ: %v", err)
	}
	for i, z := range zs {
		if math.Abs(z-1) > 0.05 {
			t.Fatalf("sample %d projects to z=%.3f, want ~1", i, z)
		}
	}
}

func TestProjectTrackZNoSegments(t *testing.T) {
	// All rail points coincident, so every cross segment is degenerate.
	inner := make(track.Curve, 10)
	outer := make(track.Curve, 10)
	lap := circleLap(500, 50, 10)
	_, err := projectTrackZ(lap, inner, outer)
	if !errors.Is(err, ErrNoSegmentMatch) {
		t.Fatalf("got %v, want ErrNoSegmentMatch", err)
	}
}
