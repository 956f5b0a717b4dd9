// Package track builds the smoothed, oriented track geometry from raw
// boundary samples: inner and outer rails of constant width, curb offset
// curves, and the painted white lines along each rail. Geometry is built
// once per (track, year) and is immutable afterward.
package track

import (
	"errors"
	"fmt"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/smoothing"
)

// ErrDiscontinuity is returned when consecutive points on a built curve
// exceed the fitting tolerance. It indicates bad input data and aborts the
// run; retrying cannot help.
var ErrDiscontinuity = errors.New("track curve discontinuity")

// Consecutive-point distance bounds on the built curves. The smoothed left
// rail is sampled densely enough that anything past these is a fit defect.
const (
	maxLeftGap  = 1.0
	maxRightGap = 1.5
)

// Curve is an ordered cyclic point sequence: index 0 follows the last.
type Curve []geom.Vec3

// PathLength returns the summed segment length in the track plane,
// excluding the closing segment, matching how rails are classified.
func (c Curve) PathLength() float64 {
	var total float64
	for i := 0; i+1 < len(c); i++ {
		total += c[i+1].XY().Sub(c[i].XY()).Norm()
	}
	return total
}

// Geometry is the complete built track: two rails of equal length plus
// their curb curves and painted lines. Inner is whichever input boundary
// has the shorter cumulative path.
type Geometry struct {
	Inner Curve
	Outer Curve

	InnerCurb Curve
	OuterCurb Curve

	InnerLine LineData
	OuterLine LineData
}

// BuildOptions parameterizes geometry construction.
type BuildOptions struct {
	WidthMeters     float64 // constant rail separation
	CurbWidthMeters float64
	ResamplePoints  int // smoothed rail density, typically 10000
	SmoothWindow    int // boundary Savitzky-Golay half-width

	// Elevation per raw left sample, optional. Stretched linearly onto
	// the resampled rails; both rails share the profile.
	Elevation []float64
}

// Build turns raw left/right boundary samples into the track geometry.
//
// The left boundary is smoothed with a periodic fit and resampled; the
// right rail is then derived point-by-point at constant width
// perpendicular to the left tangent, rather than smoothed independently,
// which would let the rails drift together around corners. Only the
// right[0] raw sample is consulted, to pick the initial projection side.
func Build(left, right []geom.Vec2, opts BuildOptions) (*Geometry, error) {
	if len(left) != len(right) {
		return nil, fmt.Errorf("track: boundary sample counts differ (%d vs %d)", len(left), len(right))
	}
	if len(left) < 9 {
		return nil, fmt.Errorf("track: need at least 9 boundary samples, got %d", len(left))
	}
	if opts.WidthMeters <= 0 || opts.CurbWidthMeters <= 0 || opts.ResamplePoints < 2 {
		return nil, fmt.Errorf("track: bad build options %+v", opts)
	}
	if len(opts.Elevation) != 0 && len(opts.Elevation) != len(left) {
		return nil, fmt.Errorf("track: elevation profile has %d samples for %d boundary points",
			len(opts.Elevation), len(left))
	}

	// Shift the seam a third of the way around so the spline closure never
	// lands on the start/finish straight.
	shift := len(left) / 3
	left = cycleShift(left, shift)
	right = cycleShift(right, shift)
	elevation := opts.Elevation
	if len(elevation) != 0 {
		elevation = cycleShiftFloats(elevation, shift)
	}

	smoothLeft, err := smoothing.ResampleClosedLoop(left, opts.ResamplePoints, opts.SmoothWindow)
	if err != nil {
		return nil, fmt.Errorf("track: left boundary fit: %w", err)
	}
	if err := checkContinuity(smoothLeft, maxLeftGap, "left"); err != nil {
		return nil, err
	}

	smoothRight := deriveRight(smoothLeft, right[0], opts.WidthMeters)
	if err := checkContinuity(smoothRight, maxRightGap, "right"); err != nil {
		return nil, err
	}

	z := stretchElevation(elevation, opts.ResamplePoints)
	lefts := withElevation(smoothLeft, z)
	rights := withElevation(smoothRight, z)

	inner, outer := classifyRails(lefts, rights)

	g := &Geometry{
		Inner:     inner,
		Outer:     outer,
		InnerCurb: curb(inner, outer, opts.CurbWidthMeters),
		OuterCurb: curb(outer, inner, opts.CurbWidthMeters),
	}
	g.InnerLine, g.OuterLine = paintedLines(inner, outer)
	return g, nil
}

// deriveRight walks the smoothed left rail projecting a constant width
// perpendicular to the local tangent. Each point takes whichever side is
// nearer the previous right point; the first point takes the side nearer
// the raw right[0] sample. The last point's tangent wraps to lefts[0],
// since the resampled loop excludes the closing sample.
func deriveRight(lefts []geom.Vec2, rawRight0 geom.Vec2, width float64) []geom.Vec2 {
	n := len(lefts)
	rights := make([]geom.Vec2, 0, n)
	for i := range lefts {
		tangent, ok := lefts[(i+1)%n].Sub(lefts[i]).Unit()
		if !ok {
			// Coincident resampled points; reuse the previous offset side.
			rights = append(rights, rights[len(rights)-1])
			continue
		}
		perp := tangent.Perp()
		a := lefts[i].Sub(perp.Scale(width))
		b := lefts[i].Add(perp.Scale(width))

		ref := rawRight0
		if i > 0 {
			ref = rights[i-1]
		}
		if a.Sub(ref).NormSquared() < b.Sub(ref).NormSquared() {
			rights = append(rights, a)
		} else {
			rights = append(rights, b)
		}
	}
	return rights
}

// classifyRails labels the shorter-path rail as inner.
func classifyRails(lefts, rights Curve) (inner, outer Curve) {
	if lefts.PathLength() <= rights.PathLength() {
		return lefts, rights
	}
	return rights, lefts
}

// curb offsets each point of cur perpendicular to its local tangent by
// width, away from the opposite rail. The final point reuses the previous
// segment direction so the closing tangent is never degenerate.
func curb(cur, other Curve, width float64) Curve {
	out := make(Curve, 0, len(cur))
	for i := range cur {
		next := i + 1
		if next == len(cur) {
			next = i - 1
		}
		tangent, ok := cur[next].XY().Sub(cur[i].XY()).Unit()
		if !ok {
			out = append(out, cur[i])
			continue
		}
		offset := tangent.Perp().Scale(width)
		a := cur[i].XY().Sub(offset)
		b := cur[i].XY().Add(offset)

		opposite := other[i].XY()
		pick := a
		if b.Sub(opposite).NormSquared() > a.Sub(opposite).NormSquared() {
			pick = b
		}
		out = append(out, geom.Vec3{X: pick.X, Y: pick.Y, Z: cur[i].Z})
	}
	return out
}

func checkContinuity(points []geom.Vec2, maxGap float64, side string) error {
	for i := 1; i < len(points); i++ {
		if d := points[i].Sub(points[i-1]).Norm(); d > maxGap {
			return fmt.Errorf("%w: %s points %d-%d are %.3f m apart (max %.1f)",
				ErrDiscontinuity, side, i-1, i, d, maxGap)
		}
	}
	return nil
}

// stretchElevation linearly maps a raw elevation profile onto numPoints,
// wrapping from the last raw value back to the first so the profile stays
// continuous across the loop seam. A missing profile yields flat zero.
func stretchElevation(raw []float64, numPoints int) []float64 {
	out := make([]float64, numPoints)
	if len(raw) == 0 {
		return out
	}
	n := len(raw)
	for k := range out {
		pos := float64(k) * float64(n) / float64(numPoints)
		i := int(pos) % n
		frac := pos - float64(int(pos))
		next := (i + 1) % n
		out[k] = raw[i] + frac*(raw[next]-raw[i])
	}
	return out
}

func withElevation(points []geom.Vec2, z []float64) Curve {
	out := make(Curve, len(points))
	for i, p := range points {
		out[i] = geom.Vec3{X: p.X, Y: p.Y, Z: z[i]}
	}
	return out
}

func cycleShift(points []geom.Vec2, shift int) []geom.Vec2 {
	out := make([]geom.Vec2, 0, len(points))
	out = append(out, points[shift:]...)
	return append(out, points[:shift]...)
}

func cycleShiftFloats(vals []float64, shift int) []float64 {
	out := make([]float64, 0, len(vals))
	out = append(out, vals[shift:]...)
	return append(out, vals[:shift]...)
}
