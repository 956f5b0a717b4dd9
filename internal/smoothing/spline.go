package smoothing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Curve is a C1 curve fitted through (optionally smoothed) samples. It is
// evaluated on the fitting domain; queries outside are clamped to the ends.
type Curve struct {
	pred interp.Predictor
	x0   float64
	x1   float64
}

// FitOptions controls a Curve fit.
type FitOptions struct {
	// HalfWidth is the Savitzky-Golay half-width applied before fitting.
	// Zero disables smoothing.
	HalfWidth int
	// PinEnds forces the first and last samples through unchanged.
	PinEnds bool
	// Linear selects piecewise-linear evaluation instead of an Akima
	// spline.
	Linear bool
}

// Fit builds a Curve over xs (which must be non-decreasing). Duplicate
// abscissae are dropped, keeping the first occurrence, because spline
// fitting requires strictly increasing xs.
func Fit(xs, ys []float64, opts FitOptions) (*Curve, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("smoothing: mismatched lengths %d vs %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("smoothing: need at least 2 samples, got %d", len(xs))
	}

	vals := ys
	if opts.HalfWidth > 0 {
		vals = SmoothOpen(ys, opts.HalfWidth)
		if opts.PinEnds {
			vals[0] = ys[0]
			vals[len(vals)-1] = ys[len(ys)-1]
		}
	}

	fx, fy := dedupe(xs, vals)
	if len(fx) < 2 {
		return nil, fmt.Errorf("smoothing: fewer than 2 unique abscissae")
	}

	c := &Curve{x0: fx[0], x1: fx[len(fx)-1]}
	if opts.Linear || len(fx) < 5 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(fx, fy); err != nil {
			return nil, fmt.Errorf("smoothing: linear fit: %w", err)
		}
		c.pred = &pl
		return c, nil
	}
	var ak interp.AkimaSpline
	if err := ak.Fit(fx, fy); err != nil {
		return nil, fmt.Errorf("smoothing: akima fit: %w", err)
	}
	c.pred = &ak
	return c, nil
}

// At evaluates the curve, clamping x to the fitting domain.
func (c *Curve) At(x float64) float64 {
	if x < c.x0 {
		x = c.x0
	} else if x > c.x1 {
		x = c.x1
	}
	return c.pred.Predict(x)
}

// dedupe drops samples whose abscissa does not strictly increase.
func dedupe(xs, ys []float64) ([]float64, []float64) {
	fx := make([]float64, 0, len(xs))
	fy := make([]float64, 0, len(ys))
	for i := range xs {
		if i > 0 && xs[i] <= fx[len(fx)-1] {
			continue
		}
		fx = append(fx, xs[i])
		fy = append(fy, ys[i])
	}
	return fx, fy
}

// Nearest resamples a discrete channel: At returns the sample value whose
// abscissa is closest to x. Used for brake, gear and DRS, which must never
// take invented intermediate states.
type Nearest struct {
	xs []float64
	ys []float64
}

// FitNearest builds a nearest-neighbor resampler over non-decreasing xs.
func FitNearest(xs, ys []float64) (*Nearest, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, fmt.Errorf("smoothing: bad nearest input (%d, %d)", len(xs), len(ys))
	}
	cx := make([]float64, len(xs))
	cy := make([]float64, len(ys))
	copy(cx, xs)
	copy(cy, ys)
	return &Nearest{xs: cx, ys: cy}, nil
}

// At returns the value of the sample nearest to x.
func (n *Nearest) At(x float64) float64 {
	i := sort.SearchFloat64s(n.xs, x)
	if i == 0 {
		return n.ys[0]
	}
	if i == len(n.xs) {
		return n.ys[len(n.ys)-1]
	}
	if x-n.xs[i-1] <= n.xs[i]-x {
		return n.ys[i-1]
	}
	return n.ys[i]
}
