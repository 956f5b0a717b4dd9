// Package smoothing provides the noise-suppression and curve-evaluation
// primitives shared by the track and car-path builders: Savitzky-Golay
// smoothing filters, spline fitting on top of gonum/interp, and a
// nearest-neighbor resampler for discrete channels.
package smoothing

// savgolWeights returns quadratic Savitzky-Golay smoothing weights for a
// window of half-width m (window size 2m+1). The closed form for a
// second-order fit is w_j = 3(3m^2+3m-1-5j^2) / ((2m+1)(4m^2+4m-3)).
// A quadratic fit reproduces second-order curves exactly, so smoothing a
// well-sampled arc does not pull it off the track.
func savgolWeights(m int) []float64 {
	w := make([]float64, 2*m+1)
	denom := float64((2*m + 1) * (4*m*m + 4*m - 3))
	for j := -m; j <= m; j++ {
		w[j+m] = 3 * float64(3*m*m+3*m-1-5*j*j) / denom
	}
	return w
}

// SmoothOpen applies Savitzky-Golay smoothing with half-width m to an open
// series. Near the ends the window shrinks symmetrically so every sample
// keeps a centered fit; the first and last samples pass through unchanged.
func SmoothOpen(ys []float64, m int) []float64 {
	n := len(ys)
	out := make([]float64, n)
	if m < 1 || n < 3 {
		copy(out, ys)
		return out
	}
	for i := range ys {
		hw := m
		if i < hw {
			hw = i
		}
		if n-1-i < hw {
			hw = n - 1 - i
		}
		if hw < 1 {
			out[i] = ys[i]
			continue
		}
		w := savgolWeights(hw)
		var acc float64
		for j := -hw; j <= hw; j++ {
			acc += w[j+hw] * ys[i+j]
		}
		out[i] = acc
	}
	return out
}

// SmoothPeriodic applies Savitzky-Golay smoothing with half-width m to a
// cyclic series (index 0 follows the last index).
func SmoothPeriodic(ys []float64, m int) []float64 {
	n := len(ys)
	out := make([]float64, n)
	if m < 1 || n < 2*m+1 {
		copy(out, ys)
		return out
	}
	w := savgolWeights(m)
	for i := range ys {
		var acc float64
		for j := -m; j <= m; j++ {
			acc += w[j+m] * ys[(i+j+n)%n]
		}
		out[i] = acc
	}
	return out
}

// WindowForRigidity maps a spline rigidity divisor to a filter half-width
// for a series of n samples. A larger divisor means a stiffer fit, so the
// window shrinks as the divisor grows. The result is clamped to [1, 7].
func WindowForRigidity(n, divisor int) int {
	if divisor < 1 {
		divisor = 1
	}
	hw := n / (10 * divisor)
	if hw < 1 {
		hw = 1
	}
	if hw > 7 {
		hw = 7
	}
	return hw
}
