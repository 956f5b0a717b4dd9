// Package store persists reconstruction runs to a local sqlite database:
// run metadata, per-driver frame sequences, ranking frames and the
// fast-forward skip set. The rendering collaborator reads runs back
// without redoing the fit.
package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/formula-viz/formula-viz/internal/carpath"
	"github.com/formula-viz/formula-viz/internal/fastforward"
	"github.com/formula-viz/formula-viz/internal/ranking"
	"github.com/formula-viz/formula-viz/internal/telemetry"
)

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path and brings
// the schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// RunInfo is one stored run's metadata.
type RunInfo struct {
	RunID           string
	Track           string
	Year            int
	RigidityDivisor int
}

// CreateRun registers a new run and returns its generated id.
func (s *Store) CreateRun(track string, year, rigidityDivisor int) (string, error) {
	runID := uuid.New().String()
	_, err := s.Exec("INSERT INTO runs (run_id, track, year, rigidity_divisor) VALUES (?, ?, ?, ?)",
		runID, track, year, rigidityDivisor)
	if err != nil {
		return "", fmt.Errorf("store: create run: %w", err)
	}
	return runID, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.Query("SELECT run_id, track, year, rigidity_divisor FROM runs ORDER BY timestamp DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.RunID, &r.Track, &r.Year, &r.RigidityDivisor); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordPath stores one driver's reconstructed frames in a single
// transaction.
func (s *Store) RecordPath(runID string, driver telemetry.Driver, lapSeconds float64, p *carpath.Path) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO drivers (run_id, driver_key, abbrev, last_name, team, color, lap_time_s)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, driver.Key(), driver.Abbrev, driver.LastName, driver.Team, driver.Color, lapSeconds)
	if err != nil {
		return fmt.Errorf("store: insert driver %s: %w", driver.Key(), err)
	}

	stmt, err := tx.Prepare(`INSERT INTO frames
		(run_id, driver_key, frame_idx, x, y, z, speed_mps, throttle, brake, rpm, gear, drs,
		 rot_w, rot_x, rot_y, rot_z, wheel_rot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range p.Frames {
		drs := 0
		if f.DRS {
			drs = 1
		}
		_, err = stmt.Exec(runID, driver.Key(), i,
			f.Pos.X, f.Pos.Y, f.Pos.Z, f.SpeedMps, f.Throttle, f.Brake, f.RPM, f.Gear, drs,
			f.Rot.W, f.Rot.X, f.Rot.Y, f.Rot.Z, f.WheelRot)
		if err != nil {
			return fmt.Errorf("store: insert frame %d for %s: %w", i, driver.Key(), err)
		}
	}
	return tx.Commit()
}

// LoadFrames reads a driver's stored frames back in order.
func (s *Store) LoadFrames(runID, driverKey string) ([]carpath.Frame, error) {
	rows, err := s.Query(`SELECT x, y, z, speed_mps, throttle, brake, rpm, gear, drs,
		rot_w, rot_x, rot_y, rot_z, wheel_rot
		FROM frames WHERE run_id = ? AND driver_key = ? ORDER BY frame_idx`, runID, driverKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []carpath.Frame
	for rows.Next() {
		var f carpath.Frame
		var drs int
		err := rows.Scan(&f.Pos.X, &f.Pos.Y, &f.Pos.Z, &f.SpeedMps, &f.Throttle, &f.Brake,
			&f.RPM, &f.Gear, &drs, &f.Rot.W, &f.Rot.X, &f.Rot.Y, &f.Rot.Z, &f.WheelRot)
		if err != nil {
			return nil, err
		}
		f.DRS = drs != 0
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// RecordRankings stores the full per-frame standings sequence.
func (s *Store) RecordRankings(runID string, frames []ranking.Frame) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO rankings (run_id, frame_idx, position, driver_key, distance)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, frame := range frames {
		for pos, st := range frame {
			if _, err := stmt.Exec(runID, i, pos+1, st.Key, st.Dist); err != nil {
				return fmt.Errorf("store: insert ranking frame %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

// LoadRankings reads the stored standings back, one Frame per frame
// index, positions in order.
func (s *Store) LoadRankings(runID string) ([]ranking.Frame, error) {
	rows, err := s.Query(`SELECT frame_idx, driver_key, distance FROM rankings
		WHERE run_id = ? ORDER BY frame_idx, position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []ranking.Frame
	for rows.Next() {
		var idx int
		var st ranking.Standing
		if err := rows.Scan(&idx, &st.Key, &st.Dist); err != nil {
			return nil, err
		}
		for len(frames) <= idx {
			frames = append(frames, nil)
		}
		frames[idx] = append(frames[idx], st)
	}
	return frames, rows.Err()
}

// RecordSchedule stores the skipped absolute frame indices of a
// fast-forward schedule.
func (s *Store) RecordSchedule(runID string, sched *fastforward.Schedule) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO skipped_frames (run_id, frame_idx) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, skip := range sched.Skip {
		if !skip {
			continue
		}
		if _, err := stmt.Exec(runID, i); err != nil {
			return fmt.Errorf("store: insert skipped frame %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadSkippedFrames reads the stored skip set back as indices.
func (s *Store) LoadSkippedFrames(runID string) ([]int, error) {
	rows, err := s.Query("SELECT frame_idx FROM skipped_frames WHERE run_id = ? ORDER BY frame_idx", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var idxs []int
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		idxs = append(idxs, i)
	}
	return idxs, rows.Err()
}
