package carpath

import (
	"fmt"

	"github.com/formula-viz/formula-viz/internal/track"
)

// InTrackLimits reports whether every real frame of the path stays
// within tolerance meters of the track corridor. The corridor is the
// set of cross segments between matching inner and outer rail points,
// so a point between the rails measures near zero and an excursion
// measures its overshoot past the nearer rail.
func InTrackLimits(p *Path, geo *track.Geometry, tolerance float64) (bool, error) {
	frames := p.RealFrames()
	if len(frames) == 0 {
		return false, fmt.Errorf("carpath: empty path")
	}
	m, ok := matchColdStart(frames[0].Pos.XY(), geo.Inner, geo.Outer)
	if !ok {
		return false, fmt.Errorf("carpath: no usable cross segment near frame 0")
	}
	if m.dist > tolerance {
		return false, nil
	}
	for i := 1; i < len(frames); i++ {
		m, ok = matchWarm(frames[i].Pos.XY(), geo.Inner, geo.Outer, m.idx)
		if !ok {
			return false, fmt.Errorf("carpath: no usable cross segment near frame %d", i)
		}
		if m.dist > tolerance {
			return false, nil
		}
	}
	return true, nil
}
