// Package report renders run artifacts for humans: an HTML page of
// channel and ranking charts, and a PNG plot of the track geometry with
// the reconstructed paths overlaid.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/formula-viz/formula-viz/internal/carpath"
	"github.com/formula-viz/formula-viz/internal/ranking"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/units"
)

// chartSampleStride thins frame series so a 2000-frame lap does not
// produce a 2000-point chart payload.
const chartSampleStride = 5

// RenderHTML writes the channel/ranking report page for a run.
func RenderHTML(w io.Writer, laps []*telemetry.Lap, paths map[string]*carpath.Path, rankings []ranking.Frame) error {
	page := components.NewPage()
	page.PageTitle = "formula-viz run report"
	page.AddCharts(
		speedChart(laps, paths),
		throttleChart(laps, paths),
		rankChart(laps, rankings),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: render page: %w", err)
	}
	return nil
}

// WriteHTML renders the report to a file.
func WriteHTML(path string, laps []*telemetry.Lap, paths map[string]*carpath.Path, rankings []ranking.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()
	return RenderHTML(f, laps, paths, rankings)
}

func speedChart(laps []*telemetry.Lap, paths map[string]*carpath.Path) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Speed", Subtitle: "km/h per output frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lap time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km/h"}),
	)
	line.SetXAxis(frameAxis(paths))
	for _, lap := range laps {
		p, ok := paths[lap.Driver.Key()]
		if !ok {
			continue
		}
		data := make([]opts.LineData, 0, len(p.Frames)/chartSampleStride+1)
		for i := p.StartBuffer; i < len(p.Frames)-p.EndBuffer; i += chartSampleStride {
			data = append(data, opts.LineData{Value: units.MpsToKmh(p.Frames[i].SpeedMps)})
		}
		line.AddSeries(seriesName(lap), data, seriesStyle(lap))
	}
	return line
}

func throttleChart(laps []*telemetry.Lap, paths map[string]*carpath.Path) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Throttle", Subtitle: "fraction per output frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "throttle", Min: 0, Max: 1}),
	)
	line.SetXAxis(frameAxis(paths))
	for _, lap := range laps {
		p, ok := paths[lap.Driver.Key()]
		if !ok {
			continue
		}
		data := make([]opts.LineData, 0, len(p.Frames)/chartSampleStride+1)
		for i := p.StartBuffer; i < len(p.Frames)-p.EndBuffer; i += chartSampleStride {
			data = append(data, opts.LineData{Value: p.Frames[i].Throttle})
		}
		line.AddSeries(seriesName(lap), data, seriesStyle(lap))
	}
	return line
}

// rankChart plots each driver's position (1 = leader) per ranking frame.
func rankChart(laps []*telemetry.Lap, rankings []ranking.Frame) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Standings", Subtitle: "position per sped frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "position"}),
	)

	positions := make(map[string][]opts.LineData, len(laps))
	xs := make([]int, 0, len(rankings)/chartSampleStride+1)
	for f := 0; f < len(rankings); f += chartSampleStride {
		xs = append(xs, f)
		for pos, st := range rankings[f] {
			positions[st.Key] = append(positions[st.Key], opts.LineData{Value: pos + 1})
		}
	}
	line.SetXAxis(xs)
	for _, lap := range laps {
		if data, ok := positions[lap.Driver.Key()]; ok {
			line.AddSeries(seriesName(lap), data, seriesStyle(lap))
		}
	}
	return line
}

// frameAxis builds a shared x axis of lap seconds covering the longest
// path's real frames.
func frameAxis(paths map[string]*carpath.Path) []string {
	longest := 0
	fps := 1
	for _, p := range paths {
		if n := len(p.RealFrames()); n > longest {
			longest = n
			fps = p.FPS
		}
	}
	xs := make([]string, 0, longest/chartSampleStride+1)
	for i := 0; i < longest; i += chartSampleStride {
		xs = append(xs, fmt.Sprintf("%.1f", float64(i)/float64(fps)))
	}
	return xs
}

func seriesName(lap *telemetry.Lap) string {
	if lap.Driver.LastName != "" {
		return lap.Driver.LastName
	}
	return lap.Driver.Abbrev
}

func seriesStyle(lap *telemetry.Lap) charts.SeriesOpts {
	return charts.WithLineStyleOpts(opts.LineStyle{Color: lap.Driver.Color})
}

// SortedKeys returns the driver keys of a path map in a stable order,
// for callers that need deterministic iteration.
func SortedKeys(paths map[string]*carpath.Path) []string {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
