package carpath

import "github.com/formula-viz/formula-viz/internal/geom"

const (
	// Lookahead frame counts for the three orientation tracks. The
	// primary track balances responsiveness against chassis jitter, the
	// short track tightens into corners for steering-linked effects, and
	// the harsh track over-smooths for camera damping.
	rotationLookahead      = 20
	shortRotationLookahead = 5
	harshRotationLookahead = 40

	// rotationBlend is the slerp fraction applied per frame, a low-pass
	// on the raw aim direction.
	rotationBlend = 0.1

	// wheelRadiusMeters approximates an F1 wheel for spin accumulation.
	wheelRadiusMeters = 0.33
)

// applyRotations fills the orientation and wheel-spin tracks from the
// frame positions. Call after extendBuffers so buffer frames are
// oriented too.
func applyRotations(p *Path) {
	n := len(p.Frames)
	if n == 0 {
		return
	}
	positions := make([]geom.Vec3, n)
	for i, f := range p.Frames {
		positions[i] = f.Pos
	}

	rots := lookaheadRots(positions, rotationLookahead)
	shorts := lookaheadRots(positions, shortRotationLookahead)
	harsh := lookaheadRots(positions, harshRotationLookahead)
	for i := range p.Frames {
		p.Frames[i].Rot = rots[i]
		p.Frames[i].ShortRot = shorts[i]
		p.Frames[i].HarshDelta = harsh[i].Sub(rots[i])
	}

	// Wheel spin: arc travelled over the wheel circumference, signed for
	// forward roll. Accumulated so the renderer never sees a reset.
	angle := 0.0
	p.Frames[0].WheelRot = angle
	for i := 1; i < n; i++ {
		angle -= p.Frames[i].SpeedMps / float64(p.FPS) / wheelRadiusMeters
		p.Frames[i].WheelRot = angle
	}
}

// lookaheadRots aims each frame at the centroid of its next lookahead
// positions and damps the result against the previous frame. The
// lookahead shrinks near the end of the path; the final frame keeps the
// prior aim direction.
func lookaheadRots(positions []geom.Vec3, lookahead int) []geom.Quat {
	n := len(positions)
	rots := make([]geom.Quat, n)
	var prev geom.Quat
	havePrev := false
	for i := range positions {
		ahead := lookahead
		if ahead > n-1-i {
			ahead = n - 1 - i
		}
		if ahead > 0 {
			centroid := geom.Vec3{}
			for j := i + 1; j <= i+ahead; j++ {
				centroid = centroid.Add(positions[j])
			}
			centroid = centroid.Scale(1 / float64(ahead))
			q := geom.TrackQuat(centroid.Sub(positions[i]))
			if havePrev {
				q = prev.Slerp(q, rotationBlend)
			}
			prev, havePrev = q, true
		}
		rots[i] = prev
	}
	return rots
}
