package track

import "github.com/formula-viz/formula-viz/internal/geom"

// LineData holds the painted white line along one rail: a trace curve and
// a fill curve slightly further across the surface.
type LineData struct {
	Trace Curve
	Fill  Curve
}

// Offsets of the painted line from its rail, toward the opposite rail.
// The small Z lift keeps the paint above the track surface when rendered.
const (
	tracePointDist = 0.2
	fillPointDist  = 0.4
	paintLift      = 0.02
)

// paintedLines derives the white line curves for both rails. Each point
// steps from its rail toward the opposite rail's matching point.
func paintedLines(inner, outer Curve) (innerLine, outerLine LineData) {
	innerLine = LineData{
		Trace: make(Curve, len(inner)),
		Fill:  make(Curve, len(inner)),
	}
	outerLine = LineData{
		Trace: make(Curve, len(outer)),
		Fill:  make(Curve, len(outer)),
	}
	for i := range inner {
		innerLine.Trace[i], innerLine.Fill[i] = linePoints(inner[i], outer[i])
		outerLine.Trace[i], outerLine.Fill[i] = linePoints(outer[i], inner[i])
	}
	return innerLine, outerLine
}

func linePoints(from, toward geom.Vec3) (trace, fill geom.Vec3) {
	dir, ok := toward.Sub(from).Unit()
	if !ok {
		return from, from
	}
	trace = from.Add(dir.Scale(tracePointDist))
	trace.Z += paintLift
	fill = from.Add(dir.Scale(fillPointDist))
	fill.Z += paintLift
	return trace, fill
}
