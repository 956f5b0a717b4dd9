package carpath

// bufferReferenceFrames is how many edge frames establish the mean
// per-frame motion used to extrapolate buffer frames.
const bufferReferenceFrames = 25

// extendBuffers prepends startFrames and appends endFrames of
// extrapolated motion so the camera can settle before lights-out and
// hold after the line. Positions continue along the mean per-frame
// delta of the nearest edge frames; every other channel holds the edge
// value. Buffers must be added before the orientation pass so the
// extrapolated frames pick up rotations too.
func extendBuffers(p *Path, startFrames, endFrames int) {
	if len(p.Frames) < 2 || (startFrames <= 0 && endFrames <= 0) {
		return
	}

	ref := bufferReferenceFrames
	if ref > len(p.Frames)-1 {
		ref = len(p.Frames) - 1
	}

	first := p.Frames[0]
	startDelta := first.Pos.Sub(p.Frames[ref].Pos).Scale(1 / float64(ref))
	last := p.Frames[len(p.Frames)-1]
	endDelta := last.Pos.Sub(p.Frames[len(p.Frames)-1-ref].Pos).Scale(1 / float64(ref))

	frames := make([]Frame, 0, startFrames+len(p.Frames)+endFrames)
	for i := startFrames; i >= 1; i-- {
		f := first
		f.Pos = first.Pos.Add(startDelta.Scale(float64(i)))
		frames = append(frames, f)
	}
	frames = append(frames, p.Frames...)
	for i := 1; i <= endFrames; i++ {
		f := last
		f.Pos = last.Pos.Add(endDelta.Scale(float64(i)))
		frames = append(frames, f)
	}

	p.Frames = frames
	p.StartBuffer = startFrames
	p.EndBuffer = endFrames
}
