package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/formula-viz/formula-viz/internal/geom"
)

// BoundarySamples are the raw left/right boundary point pairs for a track.
type BoundarySamples struct {
	Left  []geom.Vec2
	Right []geom.Vec2
}

// FindBoundaryFile locates the boundary CSV for a track in dir. Files are
// named <track>_<year>.csv. With useLatest, the newest year wins so a
// layout recorded one season can serve later seasons; otherwise the exact
// year must exist.
func FindBoundaryFile(dir, track string, year int, useLatest bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("track: read boundary dir: %w", err)
	}

	bestYear := 0
	bestName := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, track+"_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		yearStr := strings.TrimSuffix(strings.TrimPrefix(name, track+"_"), ".csv")
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			continue
		}
		if useLatest {
			if y > bestYear {
				bestYear, bestName = y, name
			}
		} else if y == year {
			return filepath.Join(dir, name), nil
		}
	}
	if bestName == "" {
		return "", fmt.Errorf("track: no boundary data for %s (year %d, latest=%v)", track, year, useLatest)
	}
	return filepath.Join(dir, bestName), nil
}

// LoadBoundary reads a boundary CSV with columns
// lefts_X,lefts_Y,rights_X,rights_Y (one row per sample pair).
func LoadBoundary(path string) (*BoundarySamples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("track: open boundary file: %w", err)
	}
	defer f.Close()

	samples, err := ParseBoundaryCSV(f)
	if err != nil {
		return nil, fmt.Errorf("track: %s: %w", filepath.Base(path), err)
	}
	return samples, nil
}

// ParseBoundaryCSV parses boundary sample pairs from r.
func ParseBoundaryCSV(r io.Reader) (*BoundarySamples, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, want := range []string{"lefts_X", "lefts_Y", "rights_X", "rights_Y"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}

	out := &BoundarySamples{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out.Left), err)
		}
		vals := make([]float64, 4)
		for i, name := range []string{"lefts_X", "lefts_Y", "rights_X", "rights_Y"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", len(out.Left), name, err)
			}
			vals[i] = v
		}
		out.Left = append(out.Left, geom.Vec2{X: vals[0], Y: vals[1]})
		out.Right = append(out.Right, geom.Vec2{X: vals[2], Y: vals[3]})
	}
	if len(out.Left) == 0 {
		return nil, fmt.Errorf("no boundary samples")
	}
	return out, nil
}
