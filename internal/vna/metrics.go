package vna

import "gonum.org/v1/gonum/stat"

// NoiseFloor computes the noise floor of a pass in dB: the mean of each
// sweep's mean trace level, averaged again across sweeps. More negative is
// better. Averaging sweep-level means (rather than all points flat) matches
// the characterization reports this engine replaces.
func NoiseFloor(traces [][]float64) float64 {
	if len(traces) == 0 {
		return 0
	}

	means := make([]float64, len(traces))
	for n, trace := range traces {
		means[n] = stat.Mean(trace, nil)
	}

	return stat.Mean(means, nil)
}

// TraceJitter computes trace-to-trace repeatability in dB: for each frequency
// point, the sample standard deviation of its dB value across the pass's
// sweeps (unbiased estimator), then the mean of those per-point deviations.
// A single sweep has zero jitter by definition.
func TraceJitter(traces [][]float64) float64 {
	if len(traces) < 2 || len(traces[0]) == 0 {
		return 0
	}

	points := len(traces[0])
	column := make([]float64, len(traces))
	deviations := make([]float64, points)

	for p := 0; p < points; p++ {
		for n, trace := range traces {
			column[n] = trace[p]
		}
		deviations[p] = stat.StdDev(column, nil)
	}

	return stat.Mean(deviations, nil)
}
