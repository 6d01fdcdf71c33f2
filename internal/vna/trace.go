package vna

import (
	"math"
	"math/cmplx"
	"time"
)

const (
	ModePolled   Mode = "polled"
	ModeStreamed Mode = "streamed"

	// magnitudeFloor clamps the magnitude before the log conversion so a
	// zero-valued sample maps to a finite dB value instead of -Inf.
	magnitudeFloor = 1e-10
)

// Mode identifies which acquisition strategy produced a result.
type Mode string

func (m Mode) String() string {
	return string(m)
}

// SweepResult is the immutable record of one completed IFBW pass. The engine
// never mutates a result after returning it.
type SweepResult struct {
	Mode        Mode            // Acquisition strategy that produced the pass
	IFBW        int64           // Hz, IF bandwidth the pass characterized
	Durations   []time.Duration // Per-sweep wall-clock durations
	Intervals   []time.Duration // Inter-sweep intervals, streamed mode only (len NumSweeps-1 at most)
	Frequencies []float64       // Hz, shared stimulus axis
	Traces      [][]float64     // Per-sweep S11 traces in dB magnitude
	NoiseFloor  float64         // dB, mean of per-sweep mean trace levels
	TraceJitter float64         // dB, mean per-point standard deviation across sweeps
}

// ToDB converts a complex S-parameter sample to dB magnitude.
func ToDB(z complex128) float64 {
	return 20 * math.Log10(max(cmplx.Abs(z), magnitudeFloor))
}

// TraceToDB converts a complex trace to dB magnitude.
func TraceToDB(samples []complex128) []float64 {
	trace := make([]float64, len(samples))
	for n, z := range samples {
		trace[n] = ToDB(z)
	}
	return trace
}
