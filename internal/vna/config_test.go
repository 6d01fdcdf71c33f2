package vna

import (
	"errors"
	"testing"

	"github.com/rfbench/vna-sweep/internal/calibration"
)

func validConfig() SweepConfig {
	cfg := SweepConfig{
		StimulusLevel: -10,
		Averaging:     1,
		NumSweeps:     5,
		IFBWValues:    []int64{100, 1000, 10_000},
	}
	cfg.ApplyCalibration(&calibration.Calibration{
		StartFrequency: 1_000_000,
		StopFrequency:  6_000_000_000,
		Points:         501,
	})
	return cfg
}

func TestSweepConfig_Validate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Valid config failed validation: %v", err)
	}

	testCases := []struct {
		name   string
		mutate func(cfg *SweepConfig)
	}{
		{"uncalibrated", func(cfg *SweepConfig) { cfg.StartFrequency, cfg.StopFrequency, cfg.Points = 0, 0, 0 }},
		{"zero points", func(cfg *SweepConfig) { cfg.Points = 0 }},
		{"start equals stop", func(cfg *SweepConfig) { cfg.StartFrequency = cfg.StopFrequency }},
		{"start above stop", func(cfg *SweepConfig) { cfg.StartFrequency = cfg.StopFrequency + 1 }},
		{"zero sweeps", func(cfg *SweepConfig) { cfg.NumSweeps = 0 }},
		{"negative sweeps", func(cfg *SweepConfig) { cfg.NumSweeps = -3 }},
		{"negative averaging", func(cfg *SweepConfig) { cfg.Averaging = -1 }},
		{"no IFBW values", func(cfg *SweepConfig) { cfg.IFBWValues = nil }},
		{"zero IFBW value", func(cfg *SweepConfig) { cfg.IFBWValues = []int64{1000, 0} }},
		{"negative IFBW value", func(cfg *SweepConfig) { cfg.IFBWValues = []int64{-100} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var cErr *ConfigError
			if !errors.As(err, &cErr) {
				t.Errorf("Expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestSweepConfig_FrequencyAxis(t *testing.T) {
	cfg := SweepConfig{StartFrequency: 1_000_000, StopFrequency: 2_000_000, Points: 5}

	axis := cfg.FrequencyAxis()
	expected := []float64{1_000_000, 1_250_000, 1_500_000, 1_750_000, 2_000_000}

	if len(axis) != len(expected) {
		t.Fatalf("Expected %d axis points, got %d", len(expected), len(axis))
	}
	for n, freq := range expected {
		if axis[n] != freq {
			t.Errorf("Axis point %d: expected %.0f Hz, got %.0f Hz", n, freq, axis[n])
		}
	}
}
