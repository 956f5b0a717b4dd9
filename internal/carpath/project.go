package carpath

import (
	"fmt"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// warmWindowDivisor sets the local search window for warm segment lookups
// to 1/10 of the track point count on each side of the previous match.
const warmWindowDivisor = 10

// segmentMatch is the result of locating the nearest cross-track segment
// (inner[idx] to outer[idx]) for a point.
type segmentMatch struct {
	idx  int
	t    float64 // clamped position across the segment, 0 = inner rail
	dist float64
}

// projectTrackZ replaces each raw sample's Z with a track-conforming
// elevation: the linear blend of inner and outer Z at the sample's nearest
// cross-track segment. Raw Z is noisy near curbs; the track surface is not.
//
// The first sample is matched with a full scan of the curve (cold start);
// subsequent samples search a local window seeded by the previous match
// (warm).
func projectTrackZ(samples telemetry.Series, inner, outer track.Curve) ([]float64, error) {
	if len(inner) != len(outer) {
		return nil, fmt.Errorf("carpath: rail lengths differ (%d vs %d)", len(inner), len(outer))
	}
	zs := make([]float64, len(samples))
	lastIdx := 0
	for i, s := range samples {
		var m segmentMatch
		var ok bool
		if i == 0 {
			m, ok = matchColdStart(s.Pos().XY(), inner, outer)
		} else {
			m, ok = matchWarm(s.Pos().XY(), inner, outer, lastIdx)
		}
		if !ok {
			return nil, fmt.Errorf("%w: sample %d at (%.1f, %.1f)", ErrNoSegmentMatch, i, s.X, s.Y)
		}
		zs[i] = inner[m.idx].Z + m.t*(outer[m.idx].Z-inner[m.idx].Z)
		lastIdx = m.idx
	}
	return zs, nil
}

// matchColdStart scans every cross-track segment for the nearest match.
func matchColdStart(p geom.Vec2, inner, outer track.Curve) (segmentMatch, bool) {
	return matchRange(p, inner, outer, 0, len(inner))
}

// matchWarm scans a window of len/10 segments, at least one, to each
// side of the previous match. Valid because cars advance monotonically
// along the track between consecutive samples.
func matchWarm(p geom.Vec2, inner, outer track.Curve, lastIdx int) (segmentMatch, bool) {
	n := len(inner)
	radius := n / warmWindowDivisor
	if radius < 1 {
		radius = 1
	}
	start := lastIdx - radius
	return matchRange(p, inner, outer, start, 2*radius+1)
}

// matchRange checks count segments starting at index start (mod n),
// skipping zero-length segments rather than failing on them.
func matchRange(p geom.Vec2, inner, outer track.Curve, start, count int) (segmentMatch, bool) {
	n := len(inner)
	best := segmentMatch{}
	found := false
	for k := 0; k < count; k++ {
		idx := ((start+k)%n + n) % n
		t, dist, ok := geom.SegmentProjection2D(p, inner[idx].XY(), outer[idx].XY())
		if !ok {
			continue
		}
		if !found || dist < best.dist {
			best = segmentMatch{idx: idx, t: t, dist: dist}
			found = true
		}
	}
	return best, found
}
