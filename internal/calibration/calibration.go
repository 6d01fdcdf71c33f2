// Package calibration loads instrument calibration files. The calibration is
// the single source of truth for the sweep frequency range and point count:
// the acquisition engine refuses to run with those fields set any other way.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
)

// Error is a custom error type for missing or malformed calibration files
type Error struct {
	Path string
	msg  string
}

func newError(path, msg string) *Error {
	return &Error{Path: path, msg: msg}
}

func (e *Error) Error() string {
	return fmt.Sprintf("calibration %s: %s", e.Path, e.msg)
}

// Calibration carries the sweep geometry recorded when the instrument was
// calibrated.
type Calibration struct {
	Type           string // Calibration type, e.g. "SOLT"
	StartFrequency int64  // Hz, frequency of the first calibration point
	StopFrequency  int64  // Hz, frequency of the last calibration point
	Points         int    // Number of calibration points
}

// calFile matches the on-disk JSON layout: a type tag and an ordered list of
// per-point records, each carrying its stimulus frequency.
type calFile struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Points  []struct {
		Frequency float64 `json:"frequency"`
	} `json:"points"`
}

// Load reads and parses a calibration file.
func Load(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(path, "file not found")
		}
		return nil, newError(path, err.Error())
	}

	var f calFile
	if err = json.Unmarshal(data, &f); err != nil {
		return nil, newError(path, fmt.Sprintf("malformed file: %s", err))
	}
	if len(f.Points) == 0 {
		return nil, newError(path, "no calibration points")
	}

	start := int64(f.Points[0].Frequency)
	stop := int64(f.Points[len(f.Points)-1].Frequency)
	if start >= stop {
		return nil, newError(path, fmt.Sprintf("invalid frequency range: %d..%d Hz", start, stop))
	}

	return &Calibration{
		Type:           f.Type,
		StartFrequency: start,
		StopFrequency:  stop,
		Points:         len(f.Points),
	}, nil
}
