package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/formula-viz/formula-viz/internal/carpath"
	"github.com/formula-viz/formula-viz/internal/track"
)

var pathPalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

// SaveTrackPlot writes a top-down PNG of the track rails with every
// driver's reconstructed path overlaid.
func SaveTrackPlot(path string, geo *track.Geometry, paths map[string]*carpath.Path) error {
	p := plot.New()
	p.Title.Text = "Track and reconstructed paths"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for _, rail := range []struct {
		name  string
		curve track.Curve
	}{
		{"inner", geo.Inner},
		{"outer", geo.Outer},
	} {
		line, err := plotter.NewLine(curveXYs(rail.curve))
		if err != nil {
			return fmt.Errorf("report: %s rail line: %w", rail.name, err)
		}
		line.Color = color.Gray{Y: 0x60}
		line.Width = vg.Points(1)
		p.Add(line)
	}

	for i, key := range SortedKeys(paths) {
		line, err := plotter.NewLine(pathXYs(paths[key]))
		if err != nil {
			return fmt.Errorf("report: path line for %s: %w", key, err)
		}
		line.Color = pathPalette[i%len(pathPalette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(key, line)
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save track plot: %w", err)
	}
	return nil
}

func curveXYs(c track.Curve) plotter.XYs {
	xys := make(plotter.XYs, 0, len(c)+1)
	for _, pt := range c {
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(c) > 0 {
		xys = append(xys, plotter.XY{X: c[0].X, Y: c[0].Y})
	}
	return xys
}

func pathXYs(p *carpath.Path) plotter.XYs {
	frames := p.RealFrames()
	xys := make(plotter.XYs, 0, len(frames))
	for _, f := range frames {
		xys = append(xys, plotter.XY{X: f.Pos.X, Y: f.Pos.Y})
	}
	return xys
}
