// Package carpath reconstructs a driver's fastest lap from sparse raw
// telemetry into a smooth, track-conforming, fixed-frame-rate path with
// per-frame channel values and orientation tracks. The pipeline is
// track-relative Z projection, arc-length spline fitting, time-domain
// speed resampling, channel resampling, a rigidity search that keeps the
// fit inside track limits, orientation smoothing and buffer extension.
package carpath

import (
	"errors"

	"github.com/formula-viz/formula-viz/internal/geom"
)

// ErrNoSegmentMatch is returned when a telemetry sample cannot be matched
// to any track cross-segment (degenerate geometry). Fatal for the driver.
var ErrNoSegmentMatch = errors.New("no track segment match for telemetry sample")

// Frame is one fixed-rate output record. Consecutive frames are exactly
// 1/fps apart in implied elapsed time.
type Frame struct {
	Pos      geom.Vec3
	SpeedMps float64
	Throttle float64 // clamped to [0,1]
	Brake    float64
	RPM      float64
	Gear     int
	DRS      bool

	// Rot is the primary damped orientation. ShortRot uses a shorter
	// lookahead for visual effects. HarshDelta is the long-lookahead
	// orientation stored as a component-wise delta from Rot.
	Rot        geom.Quat
	ShortRot   geom.Quat
	HarshDelta geom.Quat

	// WheelRot is the accumulated wheel spin angle in radians.
	WheelRot float64
}

// Path is a driver's reconstructed lap: real frames bracketed by
// synthetic start/end buffer frames.
type Path struct {
	Frames []Frame
	FPS    int

	// StartBuffer and EndBuffer count the synthetic frames at each end.
	StartBuffer int
	EndBuffer   int
}

// RealFrames returns the frames of the lap proper, without buffers.
func (p *Path) RealFrames() []Frame {
	return p.Frames[p.StartBuffer : len(p.Frames)-p.EndBuffer]
}

// FrameTime returns the implied elapsed seconds of frame i relative to
// the first real frame. Buffer frames have negative times.
func (p *Path) FrameTime(i int) float64 {
	return float64(i-p.StartBuffer) / float64(p.FPS)
}

// Finalize extends the path with buffer frames and fills the
// orientation and wheel-spin tracks. Buffers come first so the
// orientation pass covers the extrapolated frames.
func Finalize(p *Path, startFrames, endFrames int) {
	extendBuffers(p, startFrames, endFrames)
	applyRotations(p)
}
