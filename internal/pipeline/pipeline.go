// Package pipeline orchestrates a full reconstruction run: track
// geometry first, per-driver lap fetching and path fitting fanned out
// across goroutines, then the cross-driver stages (sector location,
// fast-forward schedule, per-frame rankings) that need every driver
// present. Any driver failure fails the run; a comparison with a driver
// silently missing is worse than no run.
package pipeline

import (
	"fmt"
	"log"
	"sync"

	"github.com/formula-viz/formula-viz/internal/carpath"
	"github.com/formula-viz/formula-viz/internal/config"
	"github.com/formula-viz/formula-viz/internal/fastforward"
	"github.com/formula-viz/formula-viz/internal/geom"
	"github.com/formula-viz/formula-viz/internal/ranking"
	"github.com/formula-viz/formula-viz/internal/sectors"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/track"
)

// Params describes one run.
type Params struct {
	Track   string
	Year    int
	Drivers []telemetry.Driver

	Source      telemetry.Source
	BoundaryDir string

	// UseLatestBoundary falls back to the newest recorded layout when the
	// run year has none.
	UseLatestBoundary bool

	// FocusedKey selects the driver whose path drives the fast-forward
	// schedule. Empty means the first driver.
	FocusedKey string

	Config *config.RunConfig
}

// Result is everything the rendering collaborator consumes.
type Result struct {
	Geometry *track.Geometry
	Laps     []*telemetry.Lap
	Sectors  *sectors.Info

	// SectorEndFrames maps each driver key to the absolute output frame
	// at which that driver completes each sector, start buffer included.
	SectorEndFrames map[string][3]int

	// Paths are the full fixed-rate reconstructions keyed by driver key;
	// RigidityDivisor is the shared divisor they were fitted at.
	Paths           map[string]*carpath.Path
	RigidityDivisor int

	// Schedule is the focused driver's skip plan; SpedPaths are every
	// driver's paths after applying it in lockstep.
	Schedule  *fastforward.Schedule
	SpedPaths map[string]*carpath.Path

	// Rankings holds one ordered standings frame per sped video frame.
	Rankings []ranking.Frame
}

// Run executes the whole pipeline for one (track, year, drivers) run.
func Run(p Params) (*Result, error) {
	if len(p.Drivers) == 0 {
		return nil, fmt.Errorf("pipeline: no drivers")
	}
	if p.Source == nil {
		return nil, fmt.Errorf("pipeline: no telemetry source")
	}
	cfg := p.Config
	if cfg == nil {
		cfg = &config.RunConfig{}
	}

	geo, err := buildGeometry(p, cfg)
	if err != nil {
		return nil, err
	}

	laps, err := fetchLaps(p)
	if err != nil {
		return nil, err
	}

	info, err := sectors.Locate(laps, geo.Inner, geo.Outer)
	if err != nil {
		return nil, err
	}

	// Every lap begins and ends exactly on the canonical line; the fit
	// pins its endpoints there.
	for _, lap := range laps {
		lap.Samples.PinEndpoints(info.StartFinish.XY())
	}

	paths, divisor, err := carpath.FitAll(laps, geo, carpath.Options{
		FPS:                cfg.GetFPS(),
		RigidityDivisor:    cfg.GetRigidityDivisor(),
		MaxRigidityDivisor: cfg.GetMaxRigidityDivisor(),
		TrackLimitMeters:   cfg.GetTrackLimitMeters(),
	})
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		carpath.Finalize(path, cfg.GetStartBufferFrames(), cfg.GetEndBufferFrames())
	}

	sectorEnds := make(map[string][3]int, len(laps))
	for _, lap := range laps {
		sectorEnds[lap.Driver.Key()] = sectors.EndFrames(lap.Sectors, cfg.GetFPS(), cfg.GetStartBufferFrames())
	}

	focused := p.FocusedKey
	if focused == "" {
		focused = laps[0].Driver.Key()
	}
	focusedPath, ok := paths[focused]
	if !ok {
		return nil, fmt.Errorf("pipeline: focused driver %q has no path", focused)
	}
	sched, err := fastforward.Build(focusedPath, fastforward.Options{
		Lookahead:           cfg.GetStraightLookahead(),
		StraightAngleRad:    cfg.GetStraightAngleRadians(),
		MinRunFrames:        cfg.GetMinStraightRun(),
		MaxConsecutiveSkips: cfg.GetMaxConsecutiveSkips(),
	})
	if err != nil {
		return nil, err
	}

	sped := make(map[string]*carpath.Path, len(paths))
	for key, path := range paths {
		sped[key] = sched.Apply(path)
	}

	rankings, err := rankFrames(sped, geo, info.StartFinishIndex)
	if err != nil {
		return nil, err
	}

	log.Printf("pipeline: %s %d: %d drivers, rigidity divisor %d, %d sped frames",
		p.Track, p.Year, len(laps), divisor, len(rankings))

	return &Result{
		Geometry:        geo,
		Laps:            laps,
		Sectors:         info,
		SectorEndFrames: sectorEnds,
		Paths:           paths,
		RigidityDivisor: divisor,
		Schedule:        sched,
		SpedPaths:       sped,
		Rankings:        rankings,
	}, nil
}

func buildGeometry(p Params, cfg *config.RunConfig) (*track.Geometry, error) {
	path, err := track.FindBoundaryFile(p.BoundaryDir, p.Track, p.Year, p.UseLatestBoundary)
	if err != nil {
		return nil, err
	}
	b, err := track.LoadBoundary(path)
	if err != nil {
		return nil, err
	}
	return track.Build(b.Left, b.Right, track.BuildOptions{
		WidthMeters:     cfg.GetTrackWidthMeters(),
		CurbWidthMeters: cfg.GetCurbWidthMeters(),
		ResamplePoints:  cfg.GetTrackResamplePoints(),
		SmoothWindow:    cfg.GetTrackSmoothWindow(),
	})
}

// fetchLaps retrieves every driver's fastest lap concurrently. The first
// failure in driver order is reported.
func fetchLaps(p Params) ([]*telemetry.Lap, error) {
	laps := make([]*telemetry.Lap, len(p.Drivers))
	errs := make([]error, len(p.Drivers))
	var wg sync.WaitGroup
	for i, d := range p.Drivers {
		wg.Add(1)
		go func(i int, d telemetry.Driver) {
			defer wg.Done()
			laps[i], errs[i] = p.Source.FastestLap(d, p.Track)
		}(i, d)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", p.Drivers[i], err)
		}
	}
	return laps, nil
}

// rankFrames runs the ranking engine over every sped frame. A driver who
// finishes early holds at their final frame so standings stay complete.
func rankFrames(sped map[string]*carpath.Path, geo *track.Geometry, startIdx int) ([]ranking.Frame, error) {
	e, err := ranking.NewEngine(geo.Inner, geo.Outer, startIdx)
	if err != nil {
		return nil, err
	}
	frames := 0
	for _, p := range sped {
		if len(p.Frames) > frames {
			frames = len(p.Frames)
		}
	}
	out := make([]ranking.Frame, 0, frames)
	positions := make(map[string]geom.Vec3, len(sped))
	for f := 0; f < frames; f++ {
		for key, p := range sped {
			idx := f
			if idx > len(p.Frames)-1 {
				idx = len(p.Frames) - 1
			}
			positions[key] = p.Frames[idx].Pos
		}
		out = append(out, e.Rank(positions))
	}
	return out, nil
}
