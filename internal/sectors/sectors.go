// Package sectors locates the start/finish line and the sector
// boundaries on the track curve from the raw telemetry of every driver
// in a run. Individual samples are noisy, so each location is the
// centroid of the matching samples across all drivers before it is
// projected onto the track.
package sectors

import (
	"fmt"
	"math"
	"time"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// Info is the located start/finish line and sector boundaries. Indices
// address the inner/outer cross segment nearest each location; sector 3
// ends at the start/finish line, so Indices[2] lands near
// StartFinishIndex.
type Info struct {
	StartFinishIndex int

	// StartFinish is the centroid of all drivers' first and last raw
	// sample positions, the canonical point laps are pinned to.
	StartFinish geom.Vec3

	Locations [3]geom.Vec3
	Indices   [3]int
}

// Locate derives the run's sector geometry from every driver's raw lap.
// All laps must be present; the centroids are only meaningful across the
// full field.
func Locate(laps []*telemetry.Lap, inner, outer track.Curve) (*Info, error) {
	if len(laps) == 0 {
		return nil, fmt.Errorf("sectors: no laps")
	}
	if len(inner) != len(outer) || len(inner) == 0 {
		return nil, fmt.Errorf("sectors: bad rails (%d vs %d points)", len(inner), len(outer))
	}
	for _, lap := range laps {
		if err := lap.Samples.Validate(); err != nil {
			return nil, fmt.Errorf("sectors: %s: %w", lap.Driver, err)
		}
		if lap.Sectors.Total() <= 0 {
			return nil, fmt.Errorf("sectors: %s has no sector times", lap.Driver)
		}
	}

	info := &Info{StartFinish: startFinishCentroid(laps)}
	info.StartFinishIndex = nearestIndexBySum(info.StartFinish, inner, outer)

	for s := 0; s < 3; s++ {
		var sum geom.Vec3
		for _, lap := range laps {
			cum := lap.Sectors.CumulativeEnds()[s]
			sum = sum.Add(sampleNearestTime(lap.Samples, cum).Pos())
		}
		loc := sum.Scale(1 / float64(len(laps)))
		info.Locations[s] = loc
		info.Indices[s] = nearestIndexBySegment(loc, inner, outer)
	}
	return info, nil
}

// startFinishCentroid averages the first and last raw positions of every
// lap. Both ends contribute: a qualifying lap starts and finishes on the
// same line.
func startFinishCentroid(laps []*telemetry.Lap) geom.Vec3 {
	var sum geom.Vec3
	for _, lap := range laps {
		sum = sum.Add(lap.Samples.First().Pos())
		sum = sum.Add(lap.Samples.Last().Pos())
	}
	return sum.Scale(1 / float64(2*len(laps)))
}

// nearestIndexBySum picks the cross-segment index minimizing the summed
// distance to both rail points, which keeps the line square across the
// track rather than snapping to one rail.
func nearestIndexBySum(p geom.Vec3, inner, outer track.Curve) int {
	best := 0
	bestDist := math.Inf(1)
	for i := range inner {
		d := p.Dist(inner[i]) + p.Dist(outer[i])
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// nearestIndexBySegment picks the cross-segment index with the smallest
// clamped perpendicular distance, sub-segment accurate for locations
// that fall between rail points.
func nearestIndexBySegment(p geom.Vec3, inner, outer track.Curve) int {
	best := 0
	bestDist := math.Inf(1)
	for i := range inner {
		d := geom.SegmentDistance(p, inner[i], outer[i])
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// sampleNearestTime returns the sample whose timestamp is closest to t.
func sampleNearestTime(s telemetry.Series, t time.Duration) telemetry.Sample {
	best := s[0]
	bestDiff := absDuration(s[0].Time - t)
	for _, sample := range s[1:] {
		if d := absDuration(sample.Time - t); d < bestDiff {
			best = sample
			bestDiff = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// EndFrames converts a driver's sector times into the output frame index
// at which each sector ends, offset past any start buffer.
func EndFrames(st telemetry.SectorTimes, fps, startBuffer int) [3]int {
	ends := st.CumulativeEnds()
	var out [3]int
	for i, d := range ends {
		out[i] = startBuffer + int(d.Seconds()*float64(fps))
	}
	return out
}
