package geom

// SegmentDistance returns the distance from point p to the segment a-b,
// clamping the projection to the segment endpoints. A zero-length segment
// degenerates to point distance.
func SegmentDistance(p, a, b Vec3) float64 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := a.Add(ab.Scale(t))
	return p.Dist(closest)
}

// SegmentProjection2D projects p onto the segment a-b in the track plane.
// It returns the clamped parameter t in [0,1] and the distance from p to
// the closest point. ok is false when the segment has zero length.
func SegmentProjection2D(p, a, b Vec2) (t, dist float64, ok bool) {
	ab := b.Sub(a)
	lenSq := ab.NormSquared()
	if lenSq == 0 {
		return 0, 0, false
	}
	t = p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := a.Add(ab.Scale(t))
	return t, p.Sub(closest).Norm(), true
}
