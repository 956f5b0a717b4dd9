// Package ranking computes per-frame standings of all cars along the
// track. Each frame, every car is located on the track by a cheap local
// search, a single shared reference line is placed just ahead of the
// leader, and cars are ordered by their perpendicular distance to that
// line. Distances to one common line are comparable across cars; raw
// closest-point distances would not be.
package ranking

import (
	"fmt"
	"sort"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/track"
)

// Standing is one car's rank entry for a frame: its driver key and its
// distance to the frame's reference line. Smaller distance means further
// along the track.
type Standing struct {
	Key  string
	Dist float64
}

// Frame is the full ordered standings for one video frame, ascending by
// distance, rank 1 first.
type Frame []Standing

// Engine ranks cars frame by frame. It is stateful: the reference index
// found for one frame seeds the next frame's local search, so Rank must
// be called in increasing frame order. The search only works because
// cars advance monotonically along the track between consecutive frames.
type Engine struct {
	inner, outer track.Curve
	refIdx       int
}

// NewEngine returns an engine seeded at startIdx, normally the
// start/finish index.
func NewEngine(inner, outer track.Curve, startIdx int) (*Engine, error) {
	if len(inner) != len(outer) || len(inner) < 3 {
		return nil, fmt.Errorf("ranking: bad rails (%d vs %d points)", len(inner), len(outer))
	}
	n := len(inner)
	return &Engine{inner: inner, outer: outer, refIdx: ((startIdx % n) + n) % n}, nil
}

// RefIndex returns the current reference index.
func (e *Engine) RefIndex() int { return e.refIdx }

// Rank orders the cars for one frame by distance to a shared reference
// line placed one index past the furthest-advanced car. Re-ranking the
// same positions yields the same reference index: the one-step backward
// probe re-finds a closest index the reference has already passed.
func (e *Engine) Rank(positions map[string]geom.Vec3) Frame {
	n := len(e.inner)
	// Advance is measured relative to the current reference, with the
	// backward-probe index counting as -1 so a car just behind the line
	// never outranks the true leader across the seam.
	maxClosest := -1
	maxAdvance := -n
	for _, pos := range positions {
		closest := e.climb(pos.XY())
		adv := ((closest-e.refIdx+1)%n+n)%n - 1
		if adv > maxAdvance {
			maxAdvance = adv
			maxClosest = closest
		}
	}
	if maxClosest >= 0 {
		e.refIdx = (maxClosest + 1) % n
	}

	a := e.inner[e.refIdx].XY()
	b := e.outer[e.refIdx].XY()
	frame := make(Frame, 0, len(positions))
	for key, pos := range positions {
		frame = append(frame, Standing{Key: key, Dist: lineDistance(pos.XY(), a, b)})
	}
	sort.Slice(frame, func(i, j int) bool {
		if frame[i].Dist != frame[j].Dist {
			return frame[i].Dist < frame[j].Dist
		}
		return frame[i].Key < frame[j].Key
	})
	return frame
}

// climb hill-climbs from the current reference index to a car's closest
// cross segment: walk forward while the next segment is strictly closer,
// then probe exactly one step backward and keep whichever is closer.
func (e *Engine) climb(p geom.Vec2) int {
	n := len(e.inner)
	i := e.refIdx
	cur := e.segDist(p, i)
	for {
		next := (i + 1) % n
		d := e.segDist(p, next)
		if d >= cur {
			break
		}
		i, cur = next, d
	}
	back := (e.refIdx - 1 + n) % n
	if e.segDist(p, back) < cur {
		return back
	}
	return i
}

func (e *Engine) segDist(p geom.Vec2, i int) float64 {
	_, d, ok := geom.SegmentProjection2D(p, e.inner[i].XY(), e.outer[i].XY())
	if !ok {
		return p.Sub(e.inner[i].XY()).Norm()
	}
	return d
}

// lineDistance is the unclamped perpendicular distance from p to the
// infinite line through a and b. Unclamped because a car well behind the
// reference line should measure its full shortfall, not its distance to
// a segment endpoint.
func lineDistance(p, a, b geom.Vec2) float64 {
	ab := b.Sub(a)
	norm := ab.Norm()
	if norm == 0 {
		return p.Sub(a).Norm()
	}
	ap := p.Sub(a)
	cross := ab.X*ap.Y - ab.Y*ap.X
	if cross < 0 {
		cross = -cross
	}
	return cross / norm
}
