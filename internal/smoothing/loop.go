package smoothing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/formula-viz/formula-viz/internal/geom"
)

// loopPad is the number of wrapped samples appended to each side of the
// chord-length domain before fitting, so the spline is seamless across the
// loop closure.
const loopPad = 4

// ResampleClosedLoop smooths a cyclic point sequence and resamples it at
// numPoints approximately arc-length-uniform positions. The input is
// treated as closed: the segment from the last point back to the first is
// part of the loop.
func ResampleClosedLoop(points []geom.Vec2, numPoints, halfWidth int) ([]geom.Vec2, error) {
	n := len(points)
	if n < 2*loopPad+1 {
		return nil, fmt.Errorf("smoothing: closed loop needs more than %d points, got %d", 2*loopPad, n)
	}
	if numPoints < 2 {
		return nil, fmt.Errorf("smoothing: numPoints %d too small", numPoints)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	xs = SmoothPeriodic(xs, halfWidth)
	ys = SmoothPeriodic(ys, halfWidth)

	// Cumulative chord-length parameter, including the closing segment.
	u := make([]float64, n)
	for i := 1; i < n; i++ {
		u[i] = u[i-1] + math.Hypot(xs[i]-xs[i-1], ys[i]-ys[i-1])
	}
	total := u[n-1] + math.Hypot(xs[0]-xs[n-1], ys[0]-ys[n-1])
	if total == 0 {
		return nil, fmt.Errorf("smoothing: degenerate loop with zero length")
	}

	// Wrap-pad both ends so evaluation near u=0 and u=total sees the same
	// neighborhood as any interior point.
	pu := make([]float64, 0, n+2*loopPad)
	px := make([]float64, 0, n+2*loopPad)
	py := make([]float64, 0, n+2*loopPad)
	for j := -loopPad; j < n+loopPad; j++ {
		k := ((j % n) + n) % n
		shift := 0.0
		if j < 0 {
			shift = -total
		} else if j >= n {
			shift = total
		}
		pu = append(pu, u[k]+shift)
		px = append(px, xs[k])
		py = append(py, ys[k])
	}
	pu, px, py = dropRepeats(pu, px, py)

	var akX, akY interp.AkimaSpline
	if err := akX.Fit(pu, px); err != nil {
		return nil, fmt.Errorf("smoothing: loop x fit: %w", err)
	}
	if err := akY.Fit(pu, py); err != nil {
		return nil, fmt.Errorf("smoothing: loop y fit: %w", err)
	}

	out := make([]geom.Vec2, numPoints)
	for k := range out {
		t := total * float64(k) / float64(numPoints)
		out[k] = geom.Vec2{X: akX.Predict(t), Y: akY.Predict(t)}
	}
	return out, nil
}

// dropRepeats removes samples whose parameter does not strictly increase,
// which happens when the raw boundary contains coincident points.
func dropRepeats(u, x, y []float64) ([]float64, []float64, []float64) {
	fu := u[:1]
	fx := x[:1]
	fy := y[:1]
	for i := 1; i < len(u); i++ {
		if u[i] <= fu[len(fu)-1] {
			continue
		}
		fu = append(fu, u[i])
		fx = append(fx, x[i])
		fy = append(fy, y[i])
	}
	return fu, fx, fy
}
