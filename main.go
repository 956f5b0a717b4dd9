package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/formula-viz/formula-viz/internal/config"
	"github.com/formula-viz/formula-viz/internal/pipeline"
	"github.com/formula-viz/formula-viz/internal/report"
	"github.com/formula-viz/formula-viz/internal/store"
	"github.com/formula-viz/formula-viz/internal/telemetry"
	"github.com/formula-viz/formula-viz/internal/units"
)

var (
	trackName    = flag.String("track", "", "Track name, e.g. monza")
	year         = flag.Int("year", 2024, "Season year")
	session      = flag.String("session", "Q", "Session identifier")
	drivers      = flag.String("drivers", "", "Comma-separated driver abbreviations, e.g. VER,LEC")
	focused      = flag.String("focused", "", "Driver abbreviation driving the fast-forward schedule (default: first)")
	telemetryDir = flag.String("telemetry-dir", "data/telemetry", "Directory of exported lap CSVs")
	boundaryDir  = flag.String("boundary-dir", "data/tracks", "Directory of track boundary CSVs")
	latestTrack  = flag.Bool("latest-track", true, "Fall back to the newest recorded track layout")
	configPath   = flag.String("config", "", "Run config JSON (optional)")
	dbFile       = flag.String("db", "runs.db", "Run store path, empty to skip persistence")
	reportDir    = flag.String("report-dir", "", "Write HTML report and track plot here (optional)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("formula-viz: %v", err)
	}
}

func run() error {
	if *trackName == "" || *drivers == "" {
		flag.Usage()
		return fmt.Errorf("-track and -drivers are required")
	}

	var cfg *config.RunConfig
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadRunConfig(*configPath); err != nil {
			return err
		}
	}

	field := make([]telemetry.Driver, 0, 4)
	for _, abbrev := range strings.Split(*drivers, ",") {
		abbrev = strings.ToUpper(strings.TrimSpace(abbrev))
		if abbrev == "" {
			continue
		}
		field = append(field, telemetry.Driver{Abbrev: abbrev, Year: *year, Session: *session})
	}

	focusedKey := ""
	if *focused != "" {
		focusedKey = telemetry.Driver{Abbrev: strings.ToUpper(*focused), Year: *year, Session: *session}.Key()
	}

	res, err := pipeline.Run(pipeline.Params{
		Track:             *trackName,
		Year:              *year,
		Drivers:           field,
		Source:            telemetry.DirSource{Dir: *telemetryDir},
		BoundaryDir:       *boundaryDir,
		UseLatestBoundary: *latestTrack,
		FocusedKey:        focusedKey,
		Config:            cfg,
	})
	if err != nil {
		return err
	}

	for _, lap := range res.Laps {
		key := lap.Driver.Key()
		ends := res.SectorEndFrames[key]
		log.Printf("%s: %s over %d frames, sectors end at %d/%d/%d", lap.Driver,
			units.FormatLapTime(lap.Sectors.Total()), len(res.Paths[key].Frames),
			ends[0], ends[1], ends[2])
	}

	if *dbFile != "" {
		if err := persist(res); err != nil {
			return err
		}
	}
	if *reportDir != "" {
		if err := writeReports(res); err != nil {
			return err
		}
	}
	return nil
}

func persist(res *pipeline.Result) error {
	s, err := store.Open(*dbFile)
	if err != nil {
		return err
	}
	defer s.Close()

	runID, err := s.CreateRun(*trackName, *year, res.RigidityDivisor)
	if err != nil {
		return err
	}
	for _, lap := range res.Laps {
		key := lap.Driver.Key()
		if err := s.RecordPath(runID, lap.Driver, lap.Sectors.Total().Seconds(), res.Paths[key]); err != nil {
			return err
		}
	}
	if err := s.RecordRankings(runID, res.Rankings); err != nil {
		return err
	}
	if err := s.RecordSchedule(runID, res.Schedule); err != nil {
		return err
	}
	log.Printf("stored run %s in %s", runID, *dbFile)
	return nil
}

func writeReports(res *pipeline.Result) error {
	if err := os.MkdirAll(*reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	htmlPath := filepath.Join(*reportDir, "report.html")
	if err := report.WriteHTML(htmlPath, res.Laps, res.Paths, res.Rankings); err != nil {
		return err
	}
	pngPath := filepath.Join(*reportDir, "track.png")
	if err := report.SaveTrackPlot(pngPath, res.Geometry, res.Paths); err != nil {
		return err
	}
	log.Printf("wrote %s and %s", htmlPath, pngPath)
	return nil
}
