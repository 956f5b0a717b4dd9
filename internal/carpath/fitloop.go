package carpath

import (
	"fmt"
	"log"
	"sync"

	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// FitAll reconstructs every driver's path at a shared rigidity divisor.
// The divisor starts at opts.RigidityDivisor and is raised one step at a
// time until every path stays within the track-limit tolerance. All
// drivers share the final divisor so their paths are smoothed comparably.
//
// If the ceiling divisor still leaves excursions, the paths from the
// ceiling pass are returned anyway, with a warning.
func FitAll(laps []*telemetry.Lap, geo *track.Geometry, opts Options) (map[string]*Path, int, error) {
	if len(laps) == 0 {
		return nil, 0, fmt.Errorf("carpath: no laps to fit")
	}
	divisor := opts.RigidityDivisor
	if divisor < 1 {
		divisor = 1
	}
	for {
		paths, offender, err := fitAllAt(laps, geo, opts, divisor)
		if err != nil {
			return nil, divisor, err
		}
		if offender == "" {
			return paths, divisor, nil
		}
		if divisor >= opts.MaxRigidityDivisor {
			log.Printf("carpath: %s still exceeds track limits at max rigidity divisor %d, keeping paths",
				offender, divisor)
			return paths, divisor, nil
		}
		log.Printf("carpath: %s exceeds track limits at rigidity divisor %d, retrying at %d",
			offender, divisor, divisor+1)
		divisor++
	}
}

// fitAllAt builds every path at one divisor, one goroutine per driver;
// reconstructions are independent until the track-limit check. offender
// names the first driver whose path leaves the track, or is empty when
// all fit. The returned map is complete either way.
func fitAllAt(laps []*telemetry.Lap, geo *track.Geometry, opts Options, divisor int) (map[string]*Path, string, error) {
	results := make([]*Path, len(laps))
	errs := make([]error, len(laps))
	var wg sync.WaitGroup
	for i, lap := range laps {
		wg.Add(1)
		go func(i int, lap *telemetry.Lap) {
			defer wg.Done()
			results[i], errs[i] = Reconstruct(lap.Samples, geo, opts.FPS, divisor)
		}(i, lap)
	}
	wg.Wait()

	paths := make(map[string]*Path, len(laps))
	offender := ""
	for i, lap := range laps {
		if errs[i] != nil {
			return nil, "", fmt.Errorf("%s: %w", lap.Driver, errs[i])
		}
		paths[lap.Driver.Key()] = results[i]
		if offender != "" {
			continue
		}
		ok, err := InTrackLimits(results[i], geo, opts.TrackLimitMeters)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", lap.Driver, err)
		}
		if !ok {
			offender = lap.Driver.String()
		}
	}
	return paths, offender, nil
}
