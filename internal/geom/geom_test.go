package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSegmentDistanceInterior(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}
	p := Vec3{5, 3, 0}

	if d := SegmentDistance(p, a, b); !almostEqual(d, 3, 1e-12) {
		t.Fatalf("interior projection distance = %f, want 3", d)
	}
}

func TestSegmentDistanceClampsToEndpoints(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}

	// Beyond the start: distance to a.
	if d := SegmentDistance(Vec3{-4, 3, 0}, a, b); !almostEqual(d, 5, 1e-12) {
		t.Errorf("before-start distance = %f, want 5", d)
	}
	// Beyond the end: distance to b.
	if d := SegmentDistance(Vec3{14, 3, 0}, a, b); !almostEqual(d, 5, 1e-12) {
		t.Errorf("past-end distance = %f, want 5", d)
	}
}

func TestSegmentDistanceDegenerate(t *testing.T) {
	a := Vec3{1, 2, 3}
	if d := SegmentDistance(Vec3{4, 6, 3}, a, a); !almostEqual(d, 5, 1e-12) {
		t.Fatalf("zero-length segment distance = %f, want 5", d)
	}
}

func TestSegmentProjection2D(t *testing.T) {
	a := Vec2{0, 0}
	b := Vec2{4, 0}

	tt, dist, ok := SegmentProjection2D(Vec2{1, 2}, a, b)
	if !ok {
		t.Fatal("projection reported degenerate segment")
	}
	if !almostEqual(tt, 0.25, 1e-12) || !almostEqual(dist, 2, 1e-12) {
		t.Fatalf("got t=%f dist=%f, want t=0.25 dist=2", tt, dist)
	}

	if _, _, ok := SegmentProjection2D(Vec2{1, 2}, a, a); ok {
		t.Fatal("zero-length segment should report ok=false")
	}
}

func TestTrackQuatPointsNoseAlongDirection(t *testing.T) {
	dirs := []Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{-1, 0, 0},
		{0.7, -0.7, 0.1},
	}
	for _, dir := range dirs {
		q := TrackQuat(dir)
		// The local -Y axis must map onto the normalized direction.
		nose := q.Rotate(Vec3{0, -1, 0})
		want, _ := dir.Unit()
		if nose.Sub(want).Norm() > 1e-9 {
			t.Errorf("TrackQuat(%v): nose = %v, want %v", dir, nose, want)
		}
		// The roof should stay in the upper hemisphere.
		roof := q.Rotate(Vec3{0, 0, 1})
		if roof.Z < 0 {
			t.Errorf("TrackQuat(%v): roof points down (%v)", dir, roof)
		}
	}
}

func TestTrackQuatZeroDirection(t *testing.T) {
	if q := TrackQuat(Vec3{}); q != IdentityQuat {
		t.Fatalf("zero direction quat = %+v, want identity", q)
	}
}

func TestSlerpEndpointsAndMidpoint(t *testing.T) {
	a := TrackQuat(Vec3{1, 0, 0})
	b := TrackQuat(Vec3{0, 1, 0})

	if got := a.Slerp(b, 0); got.Sub(a).norm() > 1e-9 {
		t.Errorf("slerp(0) = %+v, want %+v", got, a)
	}
	gotEnd := a.Slerp(b, 1)
	// Sign flips are allowed: q and -q are the same rotation.
	if gotEnd.Sub(b).norm() > 1e-9 && gotEnd.Sub(Quat{-b.W, -b.X, -b.Y, -b.Z}).norm() > 1e-9 {
		t.Errorf("slerp(1) = %+v, want %+v", gotEnd, b)
	}

	// The midpoint rotation should point the nose halfway between +X and +Y.
	mid := a.Slerp(b, 0.5)
	nose := mid.Rotate(Vec3{0, -1, 0})
	want, _ := Vec3{1, 1, 0}.Unit()
	if nose.Sub(want).Norm() > 1e-6 {
		t.Errorf("slerp midpoint nose = %v, want %v", nose, want)
	}
}

func TestSlerpIsNormalized(t *testing.T) {
	a := TrackQuat(Vec3{1, 0, 0})
	b := TrackQuat(Vec3{1, 0.01, 0})
	got := a.Slerp(b, 0.1)
	if !almostEqual(got.norm(), 1, 1e-9) {
		t.Fatalf("slerp of near-parallel quats has norm %f", got.norm())
	}
}
