// Package config holds the run configuration for the path-reconstruction
// pipeline. The schema is JSON so the same file drives both the CLI and
// test fixtures; fields omitted from the file keep their defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunConfig is the root configuration for a reconstruction run.
type RunConfig struct {
	// Output timing
	FPS               *int `json:"fps,omitempty"`
	StartBufferFrames *int `json:"start_buffer_frames,omitempty"`
	EndBufferFrames   *int `json:"end_buffer_frames,omitempty"`

	// Track geometry params
	TrackWidthMeters    *float64 `json:"track_width_meters,omitempty"`
	CurbWidthMeters     *float64 `json:"curb_width_meters,omitempty"`
	TrackResamplePoints *int     `json:"track_resample_points,omitempty"`
	TrackSmoothWindow   *int     `json:"track_smooth_window,omitempty"`

	// Path fitting params
	RigidityDivisor    *int     `json:"rigidity_divisor,omitempty"`
	MaxRigidityDivisor *int     `json:"max_rigidity_divisor,omitempty"`
	TrackLimitMeters   *float64 `json:"track_limit_meters,omitempty"`

	// Fast-forward params
	StraightAngleRadians *float64 `json:"straight_angle_radians,omitempty"`
	StraightLookahead    *int     `json:"straight_lookahead,omitempty"`
	MinStraightRun       *int     `json:"min_straight_run,omitempty"`
	MaxConsecutiveSkips  *int     `json:"max_consecutive_skips,omitempty"`
}

// LoadRunConfig loads a RunConfig from a JSON file. Partial configs are
// safe: omitted fields fall back to defaults via the Get* accessors.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *RunConfig) Validate() error {
	if c.FPS != nil && *c.FPS < 1 {
		return fmt.Errorf("fps must be positive, got %d", *c.FPS)
	}
	if c.StartBufferFrames != nil && *c.StartBufferFrames < 0 {
		return fmt.Errorf("start_buffer_frames must be non-negative, got %d", *c.StartBufferFrames)
	}
	if c.EndBufferFrames != nil && *c.EndBufferFrames < 0 {
		return fmt.Errorf("end_buffer_frames must be non-negative, got %d", *c.EndBufferFrames)
	}
	if c.TrackWidthMeters != nil && *c.TrackWidthMeters <= 0 {
		return fmt.Errorf("track_width_meters must be positive, got %f", *c.TrackWidthMeters)
	}
	if c.CurbWidthMeters != nil && *c.CurbWidthMeters <= 0 {
		return fmt.Errorf("curb_width_meters must be positive, got %f", *c.CurbWidthMeters)
	}
	if c.TrackResamplePoints != nil && *c.TrackResamplePoints < 100 {
		return fmt.Errorf("track_resample_points must be at least 100, got %d", *c.TrackResamplePoints)
	}
	if c.RigidityDivisor != nil && *c.RigidityDivisor < 1 {
		return fmt.Errorf("rigidity_divisor must be at least 1, got %d", *c.RigidityDivisor)
	}
	if c.MaxRigidityDivisor != nil && c.RigidityDivisor != nil &&
		*c.MaxRigidityDivisor < *c.RigidityDivisor {
		return fmt.Errorf("max_rigidity_divisor %d below rigidity_divisor %d",
			*c.MaxRigidityDivisor, *c.RigidityDivisor)
	}
	if c.TrackLimitMeters != nil && *c.TrackLimitMeters <= 0 {
		return fmt.Errorf("track_limit_meters must be positive, got %f", *c.TrackLimitMeters)
	}
	if c.StraightAngleRadians != nil && *c.StraightAngleRadians <= 0 {
		return fmt.Errorf("straight_angle_radians must be positive, got %f", *c.StraightAngleRadians)
	}
	return nil
}

// GetFPS returns the output frame rate or the default.
func (c *RunConfig) GetFPS() int {
	if c.FPS == nil {
		return 60
	}
	return *c.FPS
}

// GetStartBufferFrames returns the start buffer length or the default.
func (c *RunConfig) GetStartBufferFrames() int {
	if c.StartBufferFrames == nil {
		return 60
	}
	return *c.StartBufferFrames
}

// GetEndBufferFrames returns the end buffer length or the default.
func (c *RunConfig) GetEndBufferFrames() int {
	if c.EndBufferFrames == nil {
		return 60
	}
	return *c.EndBufferFrames
}

// GetTrackWidthMeters returns the track width or the default.
func (c *RunConfig) GetTrackWidthMeters() float64 {
	if c.TrackWidthMeters == nil {
		return 12.0
	}
	return *c.TrackWidthMeters
}

// GetCurbWidthMeters returns the curb width or the default.
func (c *RunConfig) GetCurbWidthMeters() float64 {
	if c.CurbWidthMeters == nil {
		return 2.0
	}
	return *c.CurbWidthMeters
}

// GetTrackResamplePoints returns the resampled point count or the default.
func (c *RunConfig) GetTrackResamplePoints() int {
	if c.TrackResamplePoints == nil {
		return 10000
	}
	return *c.TrackResamplePoints
}

// GetTrackSmoothWindow returns the boundary smoothing half-width or the default.
func (c *RunConfig) GetTrackSmoothWindow() int {
	if c.TrackSmoothWindow == nil {
		return 3
	}
	return *c.TrackSmoothWindow
}

// GetRigidityDivisor returns the starting spline rigidity divisor.
func (c *RunConfig) GetRigidityDivisor() int {
	if c.RigidityDivisor == nil {
		return 3
	}
	return *c.RigidityDivisor
}

// GetMaxRigidityDivisor returns the rigidity ceiling for the fit retry loop.
func (c *RunConfig) GetMaxRigidityDivisor() int {
	if c.MaxRigidityDivisor == nil {
		return 10
	}
	return *c.MaxRigidityDivisor
}

// GetTrackLimitMeters returns the track-limit tolerance or the default.
func (c *RunConfig) GetTrackLimitMeters() float64 {
	if c.TrackLimitMeters == nil {
		return 1.0
	}
	return *c.TrackLimitMeters
}

// GetStraightAngleRadians returns the straight-line angle threshold.
func (c *RunConfig) GetStraightAngleRadians() float64 {
	if c.StraightAngleRadians == nil {
		return 0.1
	}
	return *c.StraightAngleRadians
}

// GetStraightLookahead returns the straight-detection lookahead in frames.
func (c *RunConfig) GetStraightLookahead() int {
	if c.StraightLookahead == nil {
		return 25
	}
	return *c.StraightLookahead
}

// GetMinStraightRun returns the minimum confirmed straight length in frames.
func (c *RunConfig) GetMinStraightRun() int {
	if c.MinStraightRun == nil {
		return 15
	}
	return *c.MinStraightRun
}

// GetMaxConsecutiveSkips returns the fast-forward skip cap.
func (c *RunConfig) GetMaxConsecutiveSkips() int {
	if c.MaxConsecutiveSkips == nil {
		return 4
	}
	return *c.MaxConsecutiveSkips
}
