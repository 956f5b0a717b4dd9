package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNoFastestLap is returned when the timing feed has no usable fastest
// qualifying lap for a driver. This is fatal for the driver's processing;
// callers must not silently drop the driver from a comparison.
var ErrNoFastestLap = errors.New("no fastest lap available")

// Source supplies fastest-lap telemetry for drivers at a given track.
// Implementations wrap the external timing-data feed; DirSource reads the
// exported CSV form used by tools and tests.
type Source interface {
	FastestLap(driver Driver, track string) (*Lap, error)
}

// DirSource reads lap exports from a directory. Each driver has one file
// named <ABBREV>_<year>_<session>.csv whose first record carries the three
// sector times and the remaining records the telemetry samples.
type DirSource struct {
	Dir string
}

// FastestLap loads the exported lap for the driver. A missing file maps to
// ErrNoFastestLap.
func (ds DirSource) FastestLap(driver Driver, track string) (*Lap, error) {
	name := fmt.Sprintf("%s_%d_%s.csv", driver.Abbrev, driver.Year, driver.Session)
	f, err := os.Open(filepath.Join(ds.Dir, track, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s at %s", ErrNoFastestLap, driver, track)
		}
		return nil, fmt.Errorf("telemetry: open lap export: %w", err)
	}
	defer f.Close()

	lap, err := ParseLapCSV(f)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %s: %w", name, err)
	}
	lap.Driver = driver
	return lap, nil
}

// ParseLapCSV parses a lap export. Layout:
//
//	sectors,<s1_seconds>,<s2_seconds>,<s3_seconds>
//	time_s,x,y,z,speed_kmh,throttle,brake,rpm,gear,drs
//	0.000,12.3,-4.5,1.2,281.0,1.0,0,11200,8,1
//	...
func ParseLapCSV(r io.Reader) (*Lap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	sectorRec, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read sector record: %w", err)
	}
	if len(sectorRec) != 4 || sectorRec[0] != "sectors" {
		return nil, fmt.Errorf("malformed sector record %v", sectorRec)
	}
	var sectors SectorTimes
	for i, dst := range []*time.Duration{&sectors.Sector1, &sectors.Sector2, &sectors.Sector3} {
		secs, err := strconv.ParseFloat(sectorRec[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("sector %d time %q: %w", i+1, sectorRec[i+1], err)
		}
		*dst = time.Duration(secs * float64(time.Second))
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != 10 || header[0] != "time_s" {
		return nil, fmt.Errorf("malformed header %v", header)
	}

	var samples Series
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sample %d: %w", len(samples), err)
		}
		s, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", len(samples), err)
		}
		samples = append(samples, s)
	}
	if err := samples.Validate(); err != nil {
		return nil, err
	}

	return &Lap{Samples: samples, Sectors: sectors}, nil
}

func parseSample(rec []string) (Sample, error) {
	if len(rec) != 10 {
		return Sample{}, fmt.Errorf("want 10 fields, got %d", len(rec))
	}
	fields := make([]float64, 8)
	for i := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("field %d %q: %w", i, rec[i], err)
		}
		fields[i] = v
	}
	gear, err := strconv.Atoi(strings.TrimSpace(rec[8]))
	if err != nil {
		return Sample{}, fmt.Errorf("gear %q: %w", rec[8], err)
	}
	drs := strings.TrimSpace(rec[9]) == "1"

	return Sample{
		Time:     time.Duration(fields[0] * float64(time.Second)),
		X:        fields[1],
		Y:        fields[2],
		Z:        fields[3],
		SpeedKmh: fields[4],
		Throttle: fields[5],
		Brake:    fields[6],
		RPM:      fields[7],
		Gear:     gear,
		DRS:      drs,
	}, nil
}
