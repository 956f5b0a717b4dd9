// Package fastforward classifies straight sections of the focused
// driver's path and produces the frame-skip schedule that time-compresses
// the video. The same schedule is applied to every driver's path so all
// cars fast-forward in lockstep on the shared absolute frame clock.
package fastforward

import (
	"fmt"
	"math"

	"github.com/formula-viz/formula-viz/internal/carpath"
	"github.com/formula-viz/formula-viz/internal/geom"
)

// Options tunes straight detection and skip density.
type Options struct {
	Lookahead           int     // frames to each side for the direction probe
	StraightAngleRad    float64 // max angle between the probes on a straight
	MinRunFrames        int     // shortest accepted straight run
	MaxConsecutiveSkips int     // skips allowed before a basis frame is kept
}

// Schedule is a frame-skip plan plus the index maps between the absolute
// (fixed-rate) and sped (post-skip) frame clocks. AbsToSped is a
// monotone surjection; SpedToAbs lists each sped frame's source.
type Schedule struct {
	Skip      []bool
	AbsToSped []int
	SpedToAbs []int
}

// Build derives the skip schedule from the focused driver's path. Buffer
// frames and frames without room for the direction probes are never
// skipped.
func Build(p *carpath.Path, opts Options) (*Schedule, error) {
	n := len(p.Frames)
	if n == 0 {
		return nil, fmt.Errorf("fastforward: empty path")
	}
	if opts.Lookahead < 1 || opts.MinRunFrames < 1 || opts.MaxConsecutiveSkips < 1 {
		return nil, fmt.Errorf("fastforward: bad options %+v", opts)
	}

	straight := markStraights(p, opts)
	skip := make([]bool, n)
	run := 0
	for i := 0; i <= n; i++ {
		if i < n && straight[i] {
			run++
			continue
		}
		if run >= opts.MinRunFrames {
			markSkips(skip, i-run, run, opts.MaxConsecutiveSkips)
		}
		run = 0
	}

	return newSchedule(skip), nil
}

// markStraights flags frames whose backward and forward direction probes
// agree within the angle threshold. Short detections on long corners are
// still flagged here; the run-length filter in Build rejects them.
func markStraights(p *carpath.Path, opts Options) []bool {
	n := len(p.Frames)
	straight := make([]bool, n)
	lo := p.StartBuffer + opts.Lookahead
	hi := n - p.EndBuffer - opts.Lookahead
	for i := lo; i < hi; i++ {
		back := p.Frames[i].Pos.Sub(p.Frames[i-opts.Lookahead].Pos)
		fwd := p.Frames[i+opts.Lookahead].Pos.Sub(p.Frames[i].Pos)
		straight[i] = angleBetween(back, fwd) < opts.StraightAngleRad
	}
	return straight
}

// markSkips fills a confirmed straight run, keeping one basis frame
// after every maxSkips skipped frames so motion stays continuous.
func markSkips(skip []bool, start, length, maxSkips int) {
	consecutive := 0
	for i := start; i < start+length; i++ {
		if consecutive == maxSkips {
			consecutive = 0
			continue
		}
		skip[i] = true
		consecutive++
	}
}

func newSchedule(skip []bool) *Schedule {
	s := &Schedule{Skip: skip, AbsToSped: make([]int, len(skip))}
	for i, skipped := range skip {
		if !skipped {
			s.SpedToAbs = append(s.SpedToAbs, i)
		}
		sped := len(s.SpedToAbs) - 1
		if sped < 0 {
			sped = 0
		}
		s.AbsToSped[i] = sped
	}
	return s
}

// Apply filters any driver's path down to the sped frames. Lap times
// differ, so a path may be shorter or longer than the focused driver's:
// absolute indices past the schedule are kept, and schedule entries past
// the path are ignored. The input is unchanged; buffer counts are
// recomputed from how many buffer frames survive.
func (s *Schedule) Apply(p *carpath.Path) *carpath.Path {
	out := &carpath.Path{FPS: p.FPS}
	for abs, f := range p.Frames {
		if abs < len(s.Skip) && s.Skip[abs] {
			continue
		}
		out.Frames = append(out.Frames, f)
		if abs < p.StartBuffer {
			out.StartBuffer++
		}
		if abs >= len(p.Frames)-p.EndBuffer {
			out.EndBuffer++
		}
	}
	return out
}

func angleBetween(a, b geom.Vec3) float64 {
	cross := a.Cross(b).Norm()
	dot := a.Dot(b)
	return math.Atan2(cross, dot)
}
