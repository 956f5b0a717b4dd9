package carpath

import (
	"fmt"
	"math"

	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/smoothing"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
	"github.com/formula-viz/formula-viz/internal/units"
)

// speedSmoothWindow is the fixed Savitzky-Golay half-width for the speed
// trace. Speed noise is independent of the position-fit rigidity.
const speedSmoothWindow = 3

// Options parameterizes path reconstruction for a run.
type Options struct {
	FPS                int
	RigidityDivisor    int     // starting spline rigidity divisor
	MaxRigidityDivisor int     // ceiling for the track-limit retry loop
	TrackLimitMeters   float64 // allowed deviation from the track corridor
	StartBufferFrames  int
	EndBufferFrames    int
}

// Reconstruct fits one driver's raw lap onto the track at a fixed
// rigidity divisor and resamples it at fps. The returned path has no
// buffer frames or orientation tracks yet; see Finalize.
//
// Positions are fitted against arc-length displacement and speed against
// time; the integral of sampled speed bridges the two domains.
func Reconstruct(samples telemetry.Series, geo *track.Geometry, fps, rigidity int) (*Path, error) {
	if err := samples.Validate(); err != nil {
		return nil, err
	}
	if fps < 1 {
		return nil, fmt.Errorf("carpath: fps %d", fps)
	}
	lapSeconds := samples.Duration().Seconds()
	if lapSeconds <= 0 {
		return nil, fmt.Errorf("carpath: lap duration %v", samples.Duration())
	}

	zs, err := projectTrackZ(samples, geo.Inner, geo.Outer)
	if err != nil {
		return nil, err
	}

	// Arc-length parameterization over the track-projected positions.
	n := len(samples)
	displacement := make([]float64, n)
	for i := 1; i < n; i++ {
		prev := geom.Vec3{X: samples[i-1].X, Y: samples[i-1].Y, Z: zs[i-1]}
		cur := geom.Vec3{X: samples[i].X, Y: samples[i].Y, Z: zs[i]}
		displacement[i] = displacement[i-1] + cur.Dist(prev)
	}
	total := displacement[n-1]
	if total <= 0 {
		return nil, fmt.Errorf("carpath: lap covers no distance")
	}
	for i := range displacement {
		displacement[i] /= total
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	stdTime := make([]float64, n)
	mps := make([]float64, n)
	throttle := make([]float64, n)
	brake := make([]float64, n)
	rpm := make([]float64, n)
	gear := make([]float64, n)
	drs := make([]float64, n)
	for i, s := range samples {
		xs[i] = s.X
		ys[i] = s.Y
		stdTime[i] = s.Time.Seconds() / lapSeconds
		mps[i] = units.KmhToMps(s.SpeedKmh)
		throttle[i] = s.Throttle
		brake[i] = s.Brake
		rpm[i] = s.RPM
		gear[i] = float64(s.Gear)
		if s.DRS {
			drs[i] = 1
		}
	}

	posWindow := smoothing.WindowForRigidity(n, rigidity)
	posOpts := smoothing.FitOptions{HalfWidth: posWindow, PinEnds: true}
	splX, err := smoothing.Fit(displacement, xs, posOpts)
	if err != nil {
		return nil, fmt.Errorf("carpath: x fit: %w", err)
	}
	splY, err := smoothing.Fit(displacement, ys, posOpts)
	if err != nil {
		return nil, fmt.Errorf("carpath: y fit: %w", err)
	}
	// Z stays the linear interpolant of the track projection; smoothing
	// it again would detach it from the surface.
	splZ, err := smoothing.Fit(displacement, zs, smoothing.FitOptions{Linear: true})
	if err != nil {
		return nil, fmt.Errorf("carpath: z fit: %w", err)
	}

	splSpeed, err := smoothing.Fit(stdTime, mps, smoothing.FitOptions{HalfWidth: speedSmoothWindow})
	if err != nil {
		return nil, fmt.Errorf("carpath: speed fit: %w", err)
	}

	frameCount := int(lapSeconds * float64(fps))
	if frameCount < 2 {
		return nil, fmt.Errorf("carpath: lap of %v yields only %d frames at %d fps",
			samples.Duration(), frameCount, fps)
	}

	// Integrate sampled speed over 1/fps steps to get the fraction of the
	// lap distance covered at each frame, then evaluate the position
	// splines at those fractions.
	sampledMps := make([]float64, frameCount)
	for k := range sampledMps {
		t := float64(k) / float64(frameCount-1)
		sampledMps[k] = splSpeed.At(t)
	}
	covered := make([]float64, frameCount+1)
	for k, v := range sampledMps {
		covered[k+1] = covered[k] + v/float64(fps)
	}
	coveredTotal := covered[frameCount]
	if coveredTotal <= 0 {
		return nil, fmt.Errorf("carpath: integrated speed covers no distance")
	}

	numFrames := frameCount + 1
	frames := make([]Frame, numFrames)
	for k := range frames {
		q := covered[k] / coveredTotal
		frames[k].Pos = geom.Vec3{X: splX.At(q), Y: splY.At(q), Z: splZ.At(q)}
	}
	frames[0].SpeedMps = sampledMps[0]
	for k := 1; k < numFrames; k++ {
		frames[k].SpeedMps = sampledMps[k-1]
	}

	if err := resampleChannels(frames, stdTime, throttle, brake, rpm, gear, drs, posWindow); err != nil {
		return nil, err
	}

	return &Path{Frames: frames, FPS: fps}, nil
}

// resampleChannels fills the driver-input channels at each output frame.
// Throttle and RPM are continuous and take the smoothing spline; brake,
// gear and DRS are discrete and take nearest-neighbor resampling so no
// intermediate states are invented.
func resampleChannels(frames []Frame, stdTime, throttle, brake, rpm, gear, drs []float64, window int) error {
	splThrottle, err := smoothing.Fit(stdTime, throttle, smoothing.FitOptions{HalfWidth: window})
	if err != nil {
		return fmt.Errorf("carpath: throttle fit: %w", err)
	}
	splRPM, err := smoothing.Fit(stdTime, rpm, smoothing.FitOptions{HalfWidth: window})
	if err != nil {
		return fmt.Errorf("carpath: rpm fit: %w", err)
	}
	nnBrake, err := smoothing.FitNearest(stdTime, brake)
	if err != nil {
		return fmt.Errorf("carpath: brake resampler: %w", err)
	}
	nnGear, err := smoothing.FitNearest(stdTime, gear)
	if err != nil {
		return fmt.Errorf("carpath: gear resampler: %w", err)
	}
	nnDRS, err := smoothing.FitNearest(stdTime, drs)
	if err != nil {
		return fmt.Errorf("carpath: drs resampler: %w", err)
	}

	last := float64(len(frames) - 1)
	for k := range frames {
		t := float64(k) / last
		// The throttle spline may overshoot the physical range.
		frames[k].Throttle = math.Min(1, math.Max(0, splThrottle.At(t)))
		frames[k].RPM = splRPM.At(t)
		frames[k].Brake = nnBrake.At(t)
		frames[k].Gear = int(math.Round(nnGear.At(t)))
		frames[k].DRS = nnDRS.At(t) >= 0.5
	}
	return nil
}
