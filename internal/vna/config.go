package vna

import (
	"fmt"

	"github.com/rfbench/vna-sweep/internal/calibration"
)

// SweepConfig carries the per-run sweep parameters. Frequency range and point
// count are the calibration's exclusive responsibility: they can only be
// populated through ApplyCalibration, and Validate rejects a config where
// they are unset.
type SweepConfig struct {
	StartFrequency int64   `json:"startFrequency"` // Hz, from calibration
	StopFrequency  int64   `json:"stopFrequency"`  // Hz, from calibration
	Points         int     `json:"points"`         // Points per sweep, from calibration
	StimulusLevel  float64 `json:"stimulusLevel"`  // dBm
	Averaging      int     `json:"averaging"`      // Sweep averaging count
	NumSweeps      int     `json:"numSweeps"`      // Sweeps to collect per IFBW value
	IFBWValues     []int64 `json:"ifbwValues"`     // Hz, characterized in list order
}

// ApplyCalibration populates the frequency range and point count from the
// active calibration.
func (c *SweepConfig) ApplyCalibration(cal *calibration.Calibration) {
	c.StartFrequency = cal.StartFrequency
	c.StopFrequency = cal.StopFrequency
	c.Points = cal.Points
}

// Validate reports whether the config is valid for acquisition.
func (c *SweepConfig) Validate() error {
	if c.StartFrequency <= 0 || c.StopFrequency <= 0 || c.Points <= 0 {
		return NewConfigError("frequency range and point count must be populated from a calibration")
	}
	if c.StartFrequency >= c.StopFrequency {
		return NewConfigError(fmt.Sprintf("invalid frequency range: start %d Hz >= stop %d Hz", c.StartFrequency, c.StopFrequency))
	}
	if c.NumSweeps <= 0 {
		return NewConfigError(fmt.Sprintf("sweep count must be positive: %d given", c.NumSweeps))
	}
	if c.Averaging < 0 {
		return NewConfigError(fmt.Sprintf("averaging count must not be negative: %d given", c.Averaging))
	}
	if len(c.IFBWValues) == 0 {
		return NewConfigError("at least one IF bandwidth value is required")
	}
	for _, ifbw := range c.IFBWValues {
		if ifbw <= 0 {
			return NewConfigError(fmt.Sprintf("IF bandwidth must be positive: %d given", ifbw))
		}
	}

	return nil
}

// FrequencyAxis returns the shared stimulus axis: Points values spaced
// linearly from StartFrequency to StopFrequency inclusive.
func (c *SweepConfig) FrequencyAxis() []float64 {
	axis := make([]float64, c.Points)
	if c.Points == 1 {
		axis[0] = float64(c.StartFrequency)
		return axis
	}

	step := float64(c.StopFrequency-c.StartFrequency) / float64(c.Points-1)
	for n := range axis {
		axis[n] = float64(c.StartFrequency) + float64(n)*step
	}
	return axis
}
