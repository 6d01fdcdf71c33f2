package vna

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseFloor(t *testing.T) {
	traces := [][]float64{
		{-30, -32},
		{-31, -33},
		{-29, -31},
	}

	// Mean of sweep-level means (-31, -32, -30).
	assert.InDelta(t, -31.0, NoiseFloor(traces), 1e-12)
}

func TestTraceJitter(t *testing.T) {
	traces := [][]float64{
		{-30, -32},
		{-31, -33},
		{-29, -31},
	}

	// Both points have samples spaced 1 dB apart, sample std dev 1.
	assert.InDelta(t, 1.0, TraceJitter(traces), 1e-12)
}

func TestTraceJitter_UnbiasedEstimator(t *testing.T) {
	traces := [][]float64{
		{-30},
		{-34},
	}

	// Sample (n-1) std dev of {-30, -34} is sqrt(8), not 2.
	assert.InDelta(t, math.Sqrt(8), TraceJitter(traces), 1e-12)
}

func TestMetrics_Degenerate(t *testing.T) {
	assert.Zero(t, NoiseFloor(nil))
	assert.Zero(t, TraceJitter(nil))
	assert.Zero(t, TraceJitter([][]float64{{-30, -31}}), "single sweep has no jitter")
}

func TestMetrics_Deterministic(t *testing.T) {
	traces := [][]float64{
		{-41.5, -40.25, -39.75},
		{-40.5, -41.25, -40.75},
	}

	assert.Equal(t, NoiseFloor(traces), NoiseFloor(traces))
	assert.Equal(t, TraceJitter(traces), TraceJitter(traces))
}
